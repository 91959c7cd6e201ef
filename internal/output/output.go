package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/yairfalse/vahti/internal/monitor"
)

// Format represents the available output formats
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatUnified  Format = "unified"
	FormatNameOnly Format = "name-only"
)

// Formats lists every supported format
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatUnified, FormatNameOnly}

// Formatter renders check results
type Formatter interface {
	Format(w io.Writer, results []*monitor.Result) error
}

// NewFormatter creates a formatter based on format type
func NewFormatter(format string, noColor bool) (Formatter, error) {
	switch Format(strings.ToLower(format)) {
	case FormatTable, "":
		return &TableFormatter{NoColor: noColor}, nil
	case FormatJSON:
		return &JSONFormatter{Pretty: true}, nil
	case FormatYAML, "yml":
		return &YAMLFormatter{}, nil
	case FormatUnified, "diff":
		return &UnifiedFormatter{}, nil
	case FormatNameOnly, "unix":
		return &NameOnlyFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

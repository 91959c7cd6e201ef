package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/yairfalse/vahti/internal/monitor"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format writes a single result as an object and several as an array
func (f *JSONFormatter) Format(w io.Writer, results []*monitor.Result) error {
	encoder := json.NewEncoder(w)
	if f.Pretty {
		encoder.SetIndent("", "  ")
	}
	if len(results) == 1 {
		return encoder.Encode(results[0])
	}
	return encoder.Encode(results)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct{}

// Format writes results as a YAML document
func (f *YAMLFormatter) Format(w io.Writer, results []*monitor.Result) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if len(results) == 1 {
		return encoder.Encode(results[0])
	}
	return encoder.Encode(results)
}

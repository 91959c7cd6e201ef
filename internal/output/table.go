package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// TableFormatter renders results as aligned tables. Colour is used only
// when writing to a terminal.
type TableFormatter struct {
	NoColor bool
}

// Format writes one block per result
func (t *TableFormatter) Format(w io.Writer, results []*monitor.Result) error {
	useColor := !t.NoColor && isTerminal(w)
	paint := func(c *color.Color, s string) string {
		if !useColor {
			return s
		}
		c.EnableColor()
		return c.Sprint(s)
	}

	for i, r := range results {
		if r == nil {
			continue
		}
		if i > 0 {
			fmt.Fprintln(w)
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Host:\t%s\n", r.HostID)
		if r.Key != "" {
			fmt.Fprintf(tw, "Object:\t%s/%s\n", r.Bucket, r.Key)
		}
		if r.CurrentVersion != "" || r.PreviousVersion != "" {
			fmt.Fprintf(tw, "Versions:\t%s -> %s\n", orDash(r.PreviousVersion), orDash(r.CurrentVersion))
		}

		switch {
		case r.Skipped != "":
			fmt.Fprintf(tw, "Status:\t%s\n", paint(color.New(color.FgYellow), "skipped ("+r.Skipped+")"))
		case r.Changes.IsEmpty():
			fmt.Fprintf(tw, "Status:\t%s\n", paint(color.New(color.FgGreen), "no critical changes"))
			if r.Reclaimed != "" {
				fmt.Fprintf(tw, "Reclaimed:\t%s\n", r.Reclaimed)
			}
		default:
			created, modified, deleted := r.Changes.Counts()
			fmt.Fprintf(tw, "Status:\t%s\n", paint(color.New(color.FgRed, color.Bold),
				fmt.Sprintf("drift detected (%d created, %d modified, %d deleted)", created, modified, deleted)))
			if r.Finding != nil {
				fmt.Fprintf(tw, "Finding:\t%s\n", r.Finding.ID)
			}
		}
		tw.Flush()

		if r.Changes.IsEmpty() {
			continue
		}

		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "CHANGE\tPATH\tPREVIOUS\tCURRENT\n")
		fmt.Fprintf(tw, "------\t----\t--------\t-------\n")
		for _, row := range changeRows(r) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
				paint(changeColor(row.change), string(row.change)),
				row.path,
				truncateString(orDash(row.previous), 32),
				truncateString(orDash(row.current), 32),
			)
		}
		tw.Flush()
	}
	return nil
}

type changeRow struct {
	change   types.ChangeType
	path     string
	previous string
	current  string
}

// changeRows lists every change of r with its markers, grouped by change type
func changeRows(r *monitor.Result) []changeRow {
	var rows []changeRow
	for _, ct := range []types.ChangeType{types.Created, types.Modified, types.Deleted} {
		for _, path := range r.Changes.ByType(ct) {
			previous, _ := r.Previous.Marker(path)
			current, _ := r.Current.Marker(path)
			rows = append(rows, changeRow{change: ct, path: path, previous: previous, current: current})
		}
	}
	return rows
}

func changeColor(ct types.ChangeType) *color.Color {
	switch ct {
	case types.Created:
		return color.New(color.FgGreen)
	case types.Deleted:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

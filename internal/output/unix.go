package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// NameOnlyFormatter prints one "<status>\t<path>" line per change, like
// git diff --name-status. Nothing is printed when nothing changed.
type NameOnlyFormatter struct{}

// Format writes the changed paths of every result
func (u *NameOnlyFormatter) Format(w io.Writer, results []*monitor.Result) error {
	multiHost := len(results) > 1
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, row := range changeRows(r) {
			status := statusLetter(row.change)
			if multiHost {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.HostID, status, row.path)
			} else {
				fmt.Fprintf(w, "%s\t%s\n", status, row.path)
			}
		}
	}
	return nil
}

func statusLetter(ct types.ChangeType) string {
	switch ct {
	case types.Created:
		return "A"
	case types.Deleted:
		return "D"
	default:
		return "M"
	}
}

// UnifiedFormatter renders the changed entries of both snapshots as a
// unified diff of "path marker" lines
type UnifiedFormatter struct{}

// Format writes one patch per result with changes
func (u *UnifiedFormatter) Format(w io.Writer, results []*monitor.Result) error {
	for _, r := range results {
		if r == nil || r.Changes.IsEmpty() {
			continue
		}
		patch, err := UnifiedDiff(r)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, patch); err != nil {
			return err
		}
	}
	return nil
}

// UnifiedDiff builds the patch for a single result
func UnifiedDiff(r *monitor.Result) (string, error) {
	var paths []string
	for _, ct := range []types.ChangeType{types.Created, types.Modified, types.Deleted} {
		paths = append(paths, r.Changes.ByType(ct)...)
	}
	sort.Strings(paths)

	ud := difflib.UnifiedDiff{
		A:        listing(r.Previous, paths),
		B:        listing(r.Current, paths),
		FromFile: fmt.Sprintf("a/%s@%s", r.HostID, orDash(r.PreviousVersion)),
		ToFile:   fmt.Sprintf("b/%s@%s", r.HostID, orDash(r.CurrentVersion)),
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(ud)
}

// listing renders the entries of s for the given paths, one per line
func listing(s types.Snapshot, paths []string) []string {
	var lines []string
	for _, p := range paths {
		if marker, ok := s.Marker(p); ok {
			lines = append(lines, p+" "+marker+"\n")
		}
	}
	return lines
}

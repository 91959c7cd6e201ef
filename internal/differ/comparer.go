package differ

import (
	"time"

	"github.com/spf13/cast"
)

// MarkersDiffer compares two last-modified markers. When both parse as
// timestamps the instants are compared, so equivalent timestamps written in
// different formats are equal. Otherwise the raw strings are compared.
func MarkersDiffer(previous, current string) bool {
	pt, perr := parseMarker(previous)
	ct, cerr := parseMarker(current)
	if perr == nil && cerr == nil {
		return !pt.Equal(ct)
	}
	return previous != current
}

func parseMarker(marker string) (time.Time, error) {
	return cast.ToTimeE(marker)
}

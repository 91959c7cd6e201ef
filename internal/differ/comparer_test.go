package differ

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkersDiffer(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     bool
	}{
		{
			name:     "identical timestamps",
			previous: "2024-01-01T00:00:00Z",
			current:  "2024-01-01T00:00:00Z",
			want:     false,
		},
		{
			name:     "different instants",
			previous: "2024-01-01T00:00:00Z",
			current:  "2024-01-02T00:00:00Z",
			want:     true,
		},
		{
			name:     "same instant different offsets",
			previous: "2024-01-01T00:00:00Z",
			current:  "2024-01-01T02:00:00+02:00",
			want:     false,
		},
		{
			name:     "same instant different layouts",
			previous: "2024-01-01T00:00:00Z",
			current:  "Mon, 01 Jan 2024 00:00:00 +0000",
			want:     false,
		},
		{
			name:     "opaque tokens equal",
			previous: "t1",
			current:  "t1",
			want:     false,
		},
		{
			name:     "opaque tokens differ by trailing space",
			previous: "t1",
			current:  "t1 ",
			want:     true,
		},
		{
			name:     "one side unparseable",
			previous: "2024-01-01T00:00:00Z",
			current:  "garbage",
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkersDiffer(tt.previous, tt.current))
			assert.Equal(t, tt.want, MarkersDiffer(tt.current, tt.previous))
		})
	}
}

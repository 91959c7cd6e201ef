package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

func driftResult() *monitor.Result {
	return &monitor.Result{
		InvocationID:    "inv-1",
		HostID:          "i-0abc",
		Bucket:          "inventory",
		Key:             "i-0abc.json",
		CurrentVersion:  "v2",
		PreviousVersion: "v1",
		Changes: types.ChangeSet{
			Created:  []string{"/etc/sudoers.d/extra"},
			Deleted:  []string{"/etc/shadow"},
			Modified: []string{"/etc/passwd"},
		},
		Finding: &types.Finding{ID: "i-0abc/fim/2024-01-01T00:00:00.000Z"},
		Previous: types.SnapshotFromMap(map[string]string{
			"/etc/passwd": "2024-01-01T00:00:00Z",
			"/etc/shadow": "2024-01-01T00:00:00Z",
			"/etc/hosts":  "2024-01-01T00:00:00Z",
		}),
		Current: types.SnapshotFromMap(map[string]string{
			"/etc/passwd":          "2024-02-01T00:00:00Z",
			"/etc/sudoers.d/extra": "2024-02-01T00:00:00Z",
			"/etc/hosts":           "2024-01-01T00:00:00Z",
		}),
	}
}

func cleanResult() *monitor.Result {
	return &monitor.Result{HostID: "i-0def", Bucket: "inventory", Key: "i-0def.json", CurrentVersion: "v4", PreviousVersion: "v3", Reclaimed: "v3"}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  string
		want    interface{}
		wantErr bool
	}{
		{format: "table", want: &TableFormatter{}},
		{format: "", want: &TableFormatter{}},
		{format: "JSON", want: &JSONFormatter{Pretty: true}},
		{format: "yml", want: &YAMLFormatter{}},
		{format: "unified", want: &UnifiedFormatter{}},
		{format: "name-only", want: &NameOnlyFormatter{}},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := NewFormatter(tt.format, false)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{NoColor: true}
	require.NoError(t, f.Format(&buf, []*monitor.Result{driftResult(), cleanResult(), {HostID: "i-new", Skipped: monitor.SkippedNoPrevious}}))

	out := buf.String()
	assert.Contains(t, out, "i-0abc")
	assert.Contains(t, out, "v1 -> v2")
	assert.Contains(t, out, "drift detected (1 created, 1 modified, 1 deleted)")
	assert.Contains(t, out, "i-0abc/fim/2024-01-01T00:00:00.000Z")
	assert.Contains(t, out, "/etc/sudoers.d/extra")
	assert.Contains(t, out, "no critical changes")
	assert.Contains(t, out, "Reclaimed:")
	assert.Contains(t, out, "skipped (no previous snapshot)")
	assert.NotContains(t, out, "/etc/hosts")
	assert.NotContains(t, out, "\x1b[")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{Pretty: true}).Format(&buf, []*monitor.Result{driftResult()}))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "i-0abc", decoded["host_id"])
	assert.NotContains(t, decoded, "Current")

	buf.Reset()
	require.NoError(t, (&JSONFormatter{}).Format(&buf, []*monitor.Result{driftResult(), cleanResult()}))
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).Format(&buf, []*monitor.Result{cleanResult()}))

	var decoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "i-0def", decoded["host_id"])
	assert.Equal(t, "v3", decoded["reclaimed"])
}

func TestNameOnlyFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&NameOnlyFormatter{}).Format(&buf, []*monitor.Result{driftResult()}))
	assert.Equal(t, "A\t/etc/sudoers.d/extra\nM\t/etc/passwd\nD\t/etc/shadow\n", buf.String())

	buf.Reset()
	require.NoError(t, (&NameOnlyFormatter{}).Format(&buf, []*monitor.Result{driftResult(), cleanResult()}))
	assert.Equal(t, 3, strings.Count(buf.String(), "i-0abc\t"))
	assert.NotContains(t, buf.String(), "i-0def")
}

func TestUnifiedFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&UnifiedFormatter{}).Format(&buf, []*monitor.Result{driftResult(), cleanResult()}))

	out := buf.String()
	assert.Contains(t, out, "--- a/i-0abc@v1")
	assert.Contains(t, out, "+++ b/i-0abc@v2")
	assert.Contains(t, out, "-/etc/passwd 2024-01-01T00:00:00Z")
	assert.Contains(t, out, "+/etc/passwd 2024-02-01T00:00:00Z")
	assert.Contains(t, out, "-/etc/shadow 2024-01-01T00:00:00Z")
	assert.Contains(t, out, "+/etc/sudoers.d/extra 2024-02-01T00:00:00Z")
	assert.NotContains(t, out, "/etc/hosts")
	assert.NotContains(t, out, "i-0def")
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryRecord_Path(t *testing.T) {
	tests := []struct {
		name     string
		record   InventoryRecord
		wantPath string
		wantOK   bool
	}{
		{
			name:     "plain record",
			record:   InventoryRecord{Name: "passwd", InstalledDir: "/etc", ModificationTime: "2024-01-01T00:00:00Z"},
			wantPath: "/etc/passwd",
			wantOK:   true,
		},
		{
			name:     "trailing slash on dir",
			record:   InventoryRecord{Name: "shadow", InstalledDir: "/etc/", ModificationTime: "t1"},
			wantPath: "/etc/shadow",
			wantOK:   true,
		},
		{
			name:     "whitespace is trimmed",
			record:   InventoryRecord{Name: " sudoers ", InstalledDir: " /etc ", ModificationTime: " t1 "},
			wantPath: "/etc/sudoers",
			wantOK:   true,
		},
		{
			name:   "missing name",
			record: InventoryRecord{InstalledDir: "/etc", ModificationTime: "t1"},
		},
		{
			name:   "missing dir",
			record: InventoryRecord{Name: "passwd", ModificationTime: "t1"},
		},
		{
			name:   "blank marker",
			record: InventoryRecord{Name: "passwd", InstalledDir: "/etc", ModificationTime: "   "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, ok := tt.record.Path()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewSnapshot_DropsMalformedRecords(t *testing.T) {
	snap := NewSnapshot([]InventoryRecord{
		{Name: "passwd", InstalledDir: "/etc", ModificationTime: "2024-01-01T00:00:00Z"},
		{Name: "", InstalledDir: "/etc", ModificationTime: "t1"},
		{Name: "hosts", InstalledDir: "/etc", ModificationTime: ""},
		{Name: "shadow", InstalledDir: "/etc", ModificationTime: "t2"},
	})

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"/etc/passwd", "/etc/shadow"}, snap.Paths())

	marker, ok := snap.Marker("/etc/shadow")
	assert.True(t, ok)
	assert.Equal(t, "t2", marker)
	assert.False(t, snap.Has("/etc/hosts"))
}

func TestNewSnapshot_LastDuplicateWins(t *testing.T) {
	snap := NewSnapshot([]InventoryRecord{
		{Name: "passwd", InstalledDir: "/etc", ModificationTime: "t1"},
		{Name: "passwd", InstalledDir: "/etc/", ModificationTime: "t2"},
	})

	assert.Equal(t, 1, snap.Len())
	marker, _ := snap.Marker("/etc/passwd")
	assert.Equal(t, "t2", marker)
}

func TestSnapshotFromMap_CopiesInput(t *testing.T) {
	src := map[string]string{"/etc/passwd": "t1", "": "ignored"}
	snap := SnapshotFromMap(src)
	src["/etc/passwd"] = "changed"

	marker, ok := snap.Marker("/etc/passwd")
	assert.True(t, ok)
	assert.Equal(t, "t1", marker)
	assert.Equal(t, 1, snap.Len())
}

func TestSnapshot_ZeroValue(t *testing.T) {
	var snap Snapshot
	assert.Equal(t, 0, snap.Len())
	assert.Empty(t, snap.Paths())
	assert.False(t, snap.Has("/etc/passwd"))
}

func TestChangeSet_Helpers(t *testing.T) {
	cs := ChangeSet{
		Created:  []string{"/etc/a"},
		Modified: []string{"/etc/b", "/etc/c"},
	}

	assert.False(t, cs.IsEmpty())
	assert.Equal(t, 3, cs.Total())

	created, modified, deleted := cs.Counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 2, modified)
	assert.Equal(t, 0, deleted)

	ct, ok := cs.TypeOf("/etc/c")
	assert.True(t, ok)
	assert.Equal(t, Modified, ct)

	_, ok = cs.TypeOf("/etc/z")
	assert.False(t, ok)

	assert.True(t, ChangeSet{}.IsEmpty())
	assert.False(t, ChangeType("moved").IsValid())
}

func TestRecordFromEntry(t *testing.T) {
	r := RecordFromEntry(map[string]string{
		"Name":             "passwd",
		"InstalledDir":     "/etc",
		"ModificationTime": "2024-01-01T00:00:00Z",
	})
	path, ok := r.Path()
	assert.True(t, ok)
	assert.Equal(t, "/etc/passwd", path)
}

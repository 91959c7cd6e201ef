package types

import "strings"

// InventoryRecord is one entry of an AWS:File inventory capture.
type InventoryRecord struct {
	Name             string `json:"Name"`
	InstalledDir     string `json:"InstalledDir"`
	ModificationTime string `json:"ModificationTime"`
	ResourceID       string `json:"resourceId,omitempty"`
}

// Path returns the absolute file path of the record. The second return value is
// false when the name, directory or modification marker is missing.
func (r InventoryRecord) Path() (string, bool) {
	name := strings.TrimSpace(r.Name)
	dir := strings.TrimSpace(r.InstalledDir)
	if name == "" || dir == "" || strings.TrimSpace(r.ModificationTime) == "" {
		return "", false
	}
	return strings.TrimRight(dir, "/") + "/" + name, true
}

// Marker returns the trimmed modification marker.
func (r InventoryRecord) Marker() string {
	return strings.TrimSpace(r.ModificationTime)
}

// RecordFromEntry converts an SSM ListInventoryEntries entry into a record.
func RecordFromEntry(entry map[string]string) InventoryRecord {
	return InventoryRecord{
		Name:             entry["Name"],
		InstalledDir:     entry["InstalledDir"],
		ModificationTime: entry["ModificationTime"],
		ResourceID:       entry["resourceId"],
	}
}

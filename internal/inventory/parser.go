package inventory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/yairfalse/vahti/pkg/types"
)

// maxLineSize bounds a single inventory line
const maxLineSize = 4 * 1024 * 1024

// ParseStats counts what a parse kept and skipped
type ParseStats struct {
	Lines   int `json:"lines"`
	Records int `json:"records"`
	Skipped int `json:"skipped"`
}

// ParseRecords decodes an inventory payload. The payload is JSON lines, one
// record per line; a single JSON array of records is accepted as well.
// Blank and undecodable lines are skipped and counted. Only a failure to
// read the payload itself is an error.
func ParseRecords(r io.Reader) ([]types.InventoryRecord, ParseStats, error) {
	br := bufio.NewReader(r)
	if first, err := peekNonSpace(br); err == nil && first == '[' {
		return parseArray(br)
	}

	var stats ParseStats
	var records []types.InventoryRecord

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Lines++

		var record types.InventoryRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Skipped++
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to read inventory payload: %w", err)
	}

	stats.Records = len(records)
	return records, stats, nil
}

func parseArray(r io.Reader) ([]types.InventoryRecord, ParseStats, error) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to decode inventory array: %w", err)
	}

	stats := ParseStats{Lines: len(raw)}
	records := make([]types.InventoryRecord, 0, len(raw))
	for _, item := range raw {
		var record types.InventoryRecord
		if err := json.Unmarshal(item, &record); err != nil {
			stats.Skipped++
			continue
		}
		records = append(records, record)
	}
	stats.Records = len(records)
	return records, stats, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b[0])) {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

// ExtractResourceID returns the first non-empty resourceId in records
func ExtractResourceID(records []types.InventoryRecord) string {
	for _, r := range records {
		if id := strings.TrimSpace(r.ResourceID); id != "" {
			return id
		}
	}
	return ""
}

// EncodeRecords renders records as JSON lines
func EncodeRecords(records []types.InventoryRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return nil, fmt.Errorf("failed to encode inventory record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

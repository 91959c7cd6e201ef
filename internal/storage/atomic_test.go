package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriter_WriteFile(t *testing.T) {
	writer := NewAtomicWriter()
	testFile := filepath.Join(t.TempDir(), "nested", "test.jsonl")

	require.NoError(t, writer.WriteFile(testFile, []byte("first"), 0o644, false))
	data, err := writer.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	require.NoError(t, writer.WriteFile(testFile, []byte("second"), 0o644, false))
	data, err = os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	err = writer.WriteFile(testFile, []byte("third"), 0o644, true)
	assert.ErrorIs(t, err, os.ErrExist)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(testFile))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAtomicWriter_ConcurrentWrites(t *testing.T) {
	writer := NewAtomicWriter()
	testFile := filepath.Join(t.TempDir(), "concurrent.txt")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			assert.NoError(t, writer.WriteFile(testFile, []byte(fmt.Sprintf("writer %d", id)), 0o644, false))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(testFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "writer ")
}

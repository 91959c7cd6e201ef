package storage

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// AtomicWriter writes files through a temporary file and a rename so readers
// never observe a partially written version
type AtomicWriter struct {
	locks   map[string]*sync.RWMutex // per-file locks
	locksMu sync.Mutex               // protects the locks map
}

// NewAtomicWriter creates a new atomic writer
func NewAtomicWriter() *AtomicWriter {
	return &AtomicWriter{
		locks: make(map[string]*sync.RWMutex),
	}
}

// WriteFile writes data to filename atomically. With exclusive set it fails
// when filename already exists.
func (w *AtomicWriter) WriteFile(filename string, data []byte, perm os.FileMode, exclusive bool) error {
	fileLock := w.getFileLock(filename)
	fileLock.Lock()
	defer fileLock.Unlock()

	if exclusive {
		if _, err := os.Stat(filename); err == nil {
			return os.ErrExist
		}
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Dot prefix keeps temp files out of version listings and watchers
	tempFile := filepath.Join(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp."+uuid.NewString()[:8])
	if err := os.WriteFile(tempFile, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := verifyFileIntegrity(tempFile, data); err != nil {
		os.Remove(tempFile)
		return err
	}

	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ReadFile reads filename under its read lock
func (w *AtomicWriter) ReadFile(filename string) ([]byte, error) {
	fileLock := w.getFileLock(filename)
	fileLock.RLock()
	defer fileLock.RUnlock()

	return os.ReadFile(filename)
}

// Remove deletes filename under its write lock
func (w *AtomicWriter) Remove(filename string) error {
	fileLock := w.getFileLock(filename)
	fileLock.Lock()
	defer fileLock.Unlock()

	return os.Remove(filename)
}

// getFileLock gets or creates a lock for a specific file
func (w *AtomicWriter) getFileLock(filename string) *sync.RWMutex {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()

	if lock, exists := w.locks[filename]; exists {
		return lock
	}

	lock := &sync.RWMutex{}
	w.locks[filename] = lock
	return lock
}

// verifyFileIntegrity verifies that written data matches expected data
func verifyFileIntegrity(filename string, expectedData []byte) error {
	actualData, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if sha256.Sum256(expectedData) != sha256.Sum256(actualData) {
		return fmt.Errorf("file integrity check failed: hash mismatch")
	}

	return nil
}

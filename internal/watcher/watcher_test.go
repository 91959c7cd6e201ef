package watcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/internal/storage"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []monitor.ObjectEvent
}

func (h *recordingHandler) HandleObjectEvent(ctx context.Context, ev monitor.ObjectEvent) (*monitor.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return &monitor.Result{Bucket: ev.Bucket, Key: ev.Key, CurrentVersion: ev.VersionID}, nil
}

func (h *recordingHandler) Events() []monitor.ObjectEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]monitor.ObjectEvent(nil), h.events...)
}

func newTestWatcher(t *testing.T, handler EventHandler) (*Watcher, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	w, err := NewWatcher(WatcherConfig{
		Store:    store,
		Handler:  handler,
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	return w, store
}

func TestNewWatcher(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{})
	assert.Error(t, err)

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = NewWatcher(WatcherConfig{Store: store, Handler: &recordingHandler{}, Debounce: -time.Second})
	assert.Error(t, err)

	w, err := NewWatcher(WatcherConfig{Store: store, Handler: &recordingHandler{}})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_FlushKeepsNewestVersionPerKey(t *testing.T) {
	handler := &recordingHandler{}
	w, store := newTestWatcher(t, handler)
	w.debounce = time.Hour

	dir, err := store.ObjectDir("inventory", "i-1.json")
	require.NoError(t, err)
	other, err := store.ObjectDir("inventory", "i-2.json")
	require.NoError(t, err)

	ctx := context.Background()
	w.observe(ctx, dir+"/20240101T000000.000000000Z.jsonl")
	w.observe(ctx, dir+"/20240102T000000.000000000Z.jsonl")
	w.observe(ctx, dir+"/.tmp-123.jsonl")
	w.observe(ctx, other+"/20240101T000000.000000000Z.jsonl")
	assert.Equal(t, 2, w.Pending())

	w.Flush(ctx)
	w.stopTimer()

	assert.Equal(t, []monitor.ObjectEvent{
		{Bucket: "inventory", Key: "i-1.json", VersionID: "20240102T000000.000000000Z"},
		{Bucket: "inventory", Key: "i-2.json", VersionID: "20240101T000000.000000000Z"},
	}, handler.Events())
	assert.Equal(t, 0, w.Pending())
}

func TestWatcher_DetectsNewVersions(t *testing.T) {
	handler := &recordingHandler{}
	w, store := newTestWatcher(t, handler)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register the root
	time.Sleep(100 * time.Millisecond)

	version, err := store.Put(ctx, "inventory", "hosts/i-9.json", []byte(`{"resourceId":"i-9"}`+"\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(handler.Events()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, monitor.ObjectEvent{Bucket: "inventory", Key: "hosts/i-9.json", VersionID: version.ID}, handler.Events()[0])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

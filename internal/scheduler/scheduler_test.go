package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// MockHostChecker is a mock implementation of HostChecker
type MockHostChecker struct {
	mock.Mock
}

func (m *MockHostChecker) CheckHosts(ctx context.Context, hostIDs []string, concurrency int) ([]*monitor.Result, error) {
	args := m.Called(ctx, hostIDs, concurrency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*monitor.Result), args.Error(1)
}

func TestNew_Validation(t *testing.T) {
	checker := &MockHostChecker{}

	_, err := New(nil, Config{Spec: "@hourly", Hosts: []string{"i-1"}})
	assert.Error(t, err)

	_, err = New(checker, Config{Spec: "@hourly"})
	assert.Error(t, err)

	_, err = New(checker, Config{Spec: "every tuesday", Hosts: []string{"i-1"}})
	assert.Error(t, err)

	s, err := New(checker, Config{Spec: "*/5 * * * *", Hosts: []string{"i-1"}})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Runs())
}

func TestRunOnce(t *testing.T) {
	checker := &MockHostChecker{}
	results := []*monitor.Result{
		{HostID: "i-1", Changes: types.ChangeSet{Modified: []string{"/etc/passwd"}}},
		{HostID: "i-2"},
	}
	checker.On("CheckHosts", mock.Anything, []string{"i-1", "i-2"}, 2).Return(results, nil)

	var got []*monitor.Result
	s, err := New(checker, Config{
		Spec:        "@every 1h",
		Hosts:       []string{"i-1", "i-2"},
		Concurrency: 2,
		OnResults:   func(r []*monitor.Result, err error) { got = r },
	})
	require.NoError(t, err)

	s.RunOnce(context.Background(), checker)

	assert.Equal(t, 1, s.Runs())
	assert.Equal(t, results, got)
	checker.AssertExpectations(t)
}

func TestRunOnce_ReportsError(t *testing.T) {
	checker := &MockHostChecker{}
	checker.On("CheckHosts", mock.Anything, []string{"i-1"}, 1).Return(nil, errors.New("store unavailable"))

	var gotErr error
	s, err := New(checker, Config{
		Spec:        "@daily",
		Hosts:       []string{"i-1"},
		Concurrency: 1,
		OnResults:   func(r []*monitor.Result, err error) { gotErr = err },
	})
	require.NoError(t, err)

	s.RunOnce(context.Background(), checker)
	assert.EqualError(t, gotErr, "store unavailable")
}

func TestStart_StopsOnCancel(t *testing.T) {
	s, err := New(&MockHostChecker{}, Config{Spec: "@yearly", Hosts: []string{"i-1"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// MockMonitor is a mock implementation of InvocationHandler
type MockMonitor struct {
	mock.Mock
}

func (m *MockMonitor) Handle(ctx context.Context, inv monitor.Invocation) ([]*monitor.Result, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*monitor.Result), args.Error(1)
}

func TestHandle_DirectInvocation(t *testing.T) {
	mockMonitor := &MockMonitor{}
	mockMonitor.On("Handle", mock.Anything, monitor.Invocation{HostID: "i-0abc"}).Return([]*monitor.Result{{
		HostID:  "i-0abc",
		Key:     "i-0abc.json",
		Changes: types.ChangeSet{Modified: []string{"/etc/passwd"}},
		Finding: &types.Finding{ID: "i-0abc/fim/2024-01-01T00:00:00.000Z"},
	}}, nil)

	h := &Handler{Monitor: mockMonitor}
	resp, err := h.Handle(context.Background(), json.RawMessage(`{"InstanceId": "i-0abc"}`))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body struct {
		Results []Outcome `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, []string{"/etc/passwd"}, body.Results[0].Changes.Modified)
	assert.Equal(t, "i-0abc/fim/2024-01-01T00:00:00.000Z", body.Results[0].FindingID)
	mockMonitor.AssertExpectations(t)
}

func TestHandle_S3Event(t *testing.T) {
	mockMonitor := &MockMonitor{}
	want := monitor.Invocation{Events: []monitor.ObjectEvent{{Bucket: "b", Key: "i-1.json", VersionID: "v2"}}}
	mockMonitor.On("Handle", mock.Anything, want).Return([]*monitor.Result{{HostID: "i-1", Reclaimed: "v1"}}, nil)

	h := &Handler{Monitor: mockMonitor}
	resp, err := h.Handle(context.Background(), json.RawMessage(
		`{"Records": [{"s3": {"bucket": {"name": "b"}, "object": {"key": "i-1.json", "versionId": "v2"}}}]}`))
	require.NoError(t, err)
	assert.Contains(t, resp.Body, `"reclaimed":"v1"`)
	mockMonitor.AssertExpectations(t)
}

func TestHandle_Errors(t *testing.T) {
	mockMonitor := &MockMonitor{}
	mockMonitor.On("Handle", mock.Anything, monitor.Invocation{HostID: "i-1"}).Return(nil, errors.New("sink down"))

	h := &Handler{Monitor: mockMonitor}

	_, err := h.Handle(context.Background(), json.RawMessage(`{"detail": "unrelated"}`))
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), json.RawMessage(`{"InstanceId": "i-1"}`))
	assert.EqualError(t, err, "sink down")
}

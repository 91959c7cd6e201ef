package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/yairfalse/vahti/internal/logger"
	"github.com/yairfalse/vahti/internal/monitor"
	"github.com/yairfalse/vahti/pkg/types"
)

// InvocationHandler runs the checks of one decoded payload
type InvocationHandler interface {
	Handle(ctx context.Context, inv monitor.Invocation) ([]*monitor.Result, error)
}

// Response is returned to the invoker
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Outcome summarizes one check in the response body
type Outcome struct {
	HostID    string          `json:"host_id"`
	Key       string          `json:"key,omitempty"`
	Changes   types.ChangeSet `json:"changes"`
	FindingID string          `json:"finding_id,omitempty"`
	Reclaimed string          `json:"reclaimed,omitempty"`
	Skipped   string          `json:"skipped,omitempty"`
}

// Handler adapts a monitor to the Lambda runtime
type Handler struct {
	Monitor InvocationHandler
	Logger  logger.Logger
}

// Handle decodes the payload, runs the checks and reports their outcome.
// A failed check is returned as an error so the invocation is retried.
func (h *Handler) Handle(ctx context.Context, payload json.RawMessage) (Response, error) {
	log := h.Logger
	if log == nil {
		log = logger.NewNop()
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		log = log.WithField("request_id", lc.AwsRequestID)
	}

	inv, err := monitor.ParseInvocation(payload)
	if err != nil {
		log.Error("rejected payload", err)
		return Response{}, err
	}

	results, err := h.Monitor.Handle(ctx, inv)
	if err != nil {
		log.Error("drift check failed", err)
		return Response{}, err
	}

	outcomes := make([]Outcome, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		o := Outcome{
			HostID:    r.HostID,
			Key:       r.Key,
			Changes:   r.Changes,
			Reclaimed: r.Reclaimed,
			Skipped:   r.Skipped,
		}
		if r.Finding != nil {
			o.FindingID = r.Finding.ID
		}
		outcomes = append(outcomes, o)
	}

	body, err := json.Marshal(map[string]interface{}{"results": outcomes})
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return Response{StatusCode: 200, Body: string(body)}, nil
}

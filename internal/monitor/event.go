package monitor

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// ObjectEvent announces a newly written snapshot version
type ObjectEvent struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	VersionID string `json:"version_id,omitempty"`
}

// EventsFromS3 converts an S3 event notification into object events.
// Keys arrive URL-encoded and are decoded here.
func EventsFromS3(ev events.S3Event) ([]ObjectEvent, error) {
	out := make([]ObjectEvent, 0, len(ev.Records))
	for _, record := range ev.Records {
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
		}
		out = append(out, ObjectEvent{
			Bucket:    record.S3.Bucket.Name,
			Key:       key,
			VersionID: record.S3.Object.VersionID,
		})
	}
	return out, nil
}

// ParseS3Event decodes an S3 event notification document
func ParseS3Event(data []byte) ([]ObjectEvent, error) {
	var ev events.S3Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode S3 event: %w", err)
	}
	if len(ev.Records) == 0 {
		return nil, fmt.Errorf("S3 event has no records")
	}
	return EventsFromS3(ev)
}

// Invocation is a decoded trigger payload. It names either a host to check
// or the snapshot versions written to the store.
type Invocation struct {
	HostID string
	Events []ObjectEvent
}

// ParseInvocation decodes a trigger payload. Accepted shapes are a direct
// invocation such as {"InstanceId": "i-0abc"} and an S3 event notification.
func ParseInvocation(data []byte) (Invocation, error) {
	var probe struct {
		InstanceID string            `json:"InstanceId"`
		HostID     string            `json:"HostId"`
		Records    []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return Invocation{}, fmt.Errorf("failed to decode payload: %w", err)
	}

	switch {
	case len(probe.Records) > 0:
		evs, err := ParseS3Event(data)
		if err != nil {
			return Invocation{}, err
		}
		return Invocation{Events: evs}, nil
	case probe.InstanceID != "":
		return Invocation{HostID: probe.InstanceID}, nil
	case probe.HostID != "":
		return Invocation{HostID: probe.HostID}, nil
	default:
		return Invocation{}, fmt.Errorf("payload names neither an InstanceId nor S3 records")
	}
}

package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3Event(t *testing.T) {
	payload := `{
  "Records": [{
    "eventSource": "aws:s3",
    "eventName": "ObjectCreated:Put",
    "s3": {
      "bucket": {"name": "inventory-bucket"},
      "object": {
        "key": "AWS%3AFile/accountid%3D1/i-0abc.json",
        "versionId": "3HL4kqtJlcpXroDTDmJ+rmSpXd3dIbrHY"
      }
    }
  }]
}`

	events, err := ParseS3Event([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, ObjectEvent{
		Bucket:    "inventory-bucket",
		Key:       "AWS:File/accountid=1/i-0abc.json",
		VersionID: "3HL4kqtJlcpXroDTDmJ+rmSpXd3dIbrHY",
	}, events[0])
}

func TestParseS3Event_Invalid(t *testing.T) {
	_, err := ParseS3Event([]byte(`{"Records": []}`))
	assert.Error(t, err)

	_, err = ParseS3Event([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Invocation
		wantErr bool
	}{
		{
			name:    "instance id",
			payload: `{"InstanceId": "i-0abc"}`,
			want:    Invocation{HostID: "i-0abc"},
		},
		{
			name:    "host id",
			payload: `{"HostId": "web-1"}`,
			want:    Invocation{HostID: "web-1"},
		},
		{
			name:    "s3 event",
			payload: `{"Records": [{"s3": {"bucket": {"name": "b"}, "object": {"key": "i-1.json", "versionId": "v2"}}}]}`,
			want:    Invocation{Events: []ObjectEvent{{Bucket: "b", Key: "i-1.json", VersionID: "v2"}}},
		},
		{name: "empty object", payload: `{}`, wantErr: true},
		{name: "not json", payload: `InstanceId=i-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInvocation([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

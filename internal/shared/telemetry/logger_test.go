package telemetry

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
)

func TestWarnWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	Warn("quota.consume_failed", map[string]any{"user_id": "u1"})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warning" {
		t.Fatalf("expected warning level, got %v", entry["level"])
	}
	if entry["msg"] != "quota.consume_failed" {
		t.Fatalf("unexpected msg %v", entry["msg"])
	}
	if entry["user_id"] != "u1" {
		t.Fatalf("expected user_id field, got %v", entry["user_id"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key")
	}
}

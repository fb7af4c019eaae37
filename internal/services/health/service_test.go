package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecks(t *testing.T) {
	payload, ok := NewService().Status(context.Background())
	if !ok || payload["ok"] != true {
		t.Fatalf("unexpected status %v", payload)
	}
	if _, present := payload["dependencies"]; present {
		t.Fatalf("expected no dependencies section")
	}
}

func TestStatusReportsFailingDependency(t *testing.T) {
	svc := NewService()
	svc.Register("postgres", func(ctx context.Context) error { return nil })
	svc.Register("redis", func(ctx context.Context) error { return errors.New("dial tcp: refused") })
	svc.Register("skipped", nil)

	payload, ok := svc.Status(context.Background())
	if ok {
		t.Fatalf("expected unhealthy status")
	}
	deps := payload["dependencies"].(map[string]string)
	if deps["postgres"] != "ok" || deps["redis"] != "dial tcp: refused" {
		t.Fatalf("unexpected dependencies %v", deps)
	}
	if _, present := deps["skipped"]; present {
		t.Fatalf("nil checks must be ignored")
	}
}

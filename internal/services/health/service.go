package health

import (
	"context"
	"sort"
	"time"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Service runs dependency checks for the health endpoint.
type Service struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{checks: map[string]Check{}, timeout: 2 * time.Second}
}

// Register adds a named check. A nil check is ignored.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.checks[name] = check
}

// Status runs every check and returns the payload plus overall health.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	ok := true
	deps := map[string]string{}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.checks[name](cctx)
		cancel()
		if err != nil {
			ok = false
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}
	payload := map[string]any{"ok": ok}
	if len(deps) > 0 {
		payload["dependencies"] = deps
	}
	return payload, ok
}

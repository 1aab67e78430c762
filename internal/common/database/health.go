package database

import (
	"context"
	"time"
)

// Pinger is a backing service that can report its reachability.
type Pinger interface {
	Name() string
	Ping(ctx context.Context) error
}

// CheckAll pings every service with a shared timeout and returns the
// failures keyed by service name. An empty map means all are reachable.
func CheckAll(ctx context.Context, timeout time.Duration, services ...Pinger) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	failures := map[string]string{}
	for _, s := range services {
		if s == nil {
			continue
		}
		if err := s.Ping(ctx); err != nil {
			failures[s.Name()] = err.Error()
		}
	}
	return failures
}

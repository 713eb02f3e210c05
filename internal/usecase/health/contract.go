package health

import "context"

// Pinger is the Redis connection behind sessions, budgets and the document index.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober is a model provider reachable over HTTP.
type Prober interface {
	HealthCheck(ctx context.Context) error
}

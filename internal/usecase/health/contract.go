package health

import "context"

// CachePinger checks query cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// GeneratorChecker checks generator provider availability.
type GeneratorChecker interface {
	HealthCheck(ctx context.Context) error
}

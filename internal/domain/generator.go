package domain

import "context"

// Generator is the text-generation contract between layers.
// It returns the raw model output; an absent response field yields "".
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// HealthChecker verifies generator provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

package generate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/metrics"
)

// InstrumentedGenerator wraps a Generator with request metrics and logging.
type InstrumentedGenerator struct {
	inner    domain.Generator
	provider string
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps gen. provider labels metrics and logs.
func NewInstrumentedGenerator(gen domain.Generator, provider string, logger *zap.Logger) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: gen, provider: provider, logger: logger}
}

// Generate delegates to the inner generator and records the outcome.
func (g *InstrumentedGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	start := time.Now()

	out, err := g.inner.Generate(ctx, prompt, model)

	duration := time.Since(start)
	metrics.GeneratorRequestDuration.WithLabelValues(g.provider, model).Observe(duration.Seconds())

	if err != nil {
		metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, model, "error").Inc()
		g.logger.Warn("Generator request failed",
			zap.String("provider", g.provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", err
	}

	metrics.GeneratorRequestsTotal.WithLabelValues(g.provider, model, "success").Inc()
	g.logger.Debug("Generator request completed",
		zap.String("provider", g.provider),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("response_bytes", len(out)),
	)
	return out, nil
}

// HealthCheck forwards to the inner generator when it supports health checks.
func (g *InstrumentedGenerator) HealthCheck(ctx context.Context) error {
	if hc, ok := g.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

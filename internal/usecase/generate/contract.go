package generate

import (
	"context"

	"github.com/kailas-cloud/querygen/internal/domain"
)

// AggregateStore loads and persists the dataset.
type AggregateStore interface {
	Load() (*domain.Aggregate, error)
	Save(agg *domain.Aggregate) error
}

// QueryCache is an optional best-effort store of validated query sets.
type QueryCache interface {
	Get(ctx context.Context, model, prompt string) (domain.QuerySet, bool)
	Put(ctx context.Context, model, prompt string, qs domain.QuerySet)
}

// ProgressPublisher receives a snapshot after load and after every successful save.
type ProgressPublisher interface {
	Publish(p domain.Progress)
}

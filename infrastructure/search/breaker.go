package search

import (
	"context"
	"time"

	"canvas-backend/application/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerIndex wraps a ports.FulltextIndex with a circuit breaker. Search
// mirroring is best-effort: when the index misbehaves the breaker opens and
// calls fail fast instead of stalling every canvas write on index latency.
type BreakerIndex struct {
	inner  ports.FulltextIndex
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerIndex wraps the given index
func NewBreakerIndex(inner ports.FulltextIndex, logger *zap.Logger) *BreakerIndex {
	b := &BreakerIndex{inner: inner, logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fulltext-index",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Fulltext index breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return b
}

var _ ports.FulltextIndex = (*BreakerIndex)(nil)

// UpsertDocument forwards through the breaker
func (b *BreakerIndex) UpsertDocument(ctx context.Context, uid, kind string, doc ports.SearchDocument) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.UpsertDocument(ctx, uid, kind, doc)
	})
	return err
}

// DeleteDocument forwards through the breaker
func (b *BreakerIndex) DeleteDocument(ctx context.Context, uid, kind, id string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.DeleteDocument(ctx, uid, kind, id)
	})
	return err
}

// Package notify fans evaluation results out to subscribers.
package notify

import (
	"context"

	"ads-guardrail/internal/domain"
)

// Publisher delivers a finished evaluation to interested parties.
// Publish must not block on slow subscribers.
type Publisher interface {
	Publish(ctx context.Context, rec *domain.EvaluationRecord) error
}

// Noop discards every record.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, *domain.EvaluationRecord) error { return nil }

var _ Publisher = Noop{}

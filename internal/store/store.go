// Package store holds the rule, trigger and reading persistence
// adapters. The backing services are external and concurrency-safe;
// adapters here only issue requests.
package store

import (
	"context"
	"time"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// DefaultTriggerLimit truncates trigger history queries when the
// caller does not pass a limit.
const DefaultTriggerLimit = 50

// RuleStore is CRUD over alert rules plus append-only trigger records.
type RuleStore interface {
	// CreateRule validates the rule, stamps CreatedAt/UpdatedAt and
	// assigns an id. Rejects invalid rules with domain.ErrInvalidRule.
	CreateRule(ctx context.Context, rule domain.AlertRule) (domain.AlertRule, error)

	// UpdateRule merges the partial update, re-validates the result and
	// re-stamps UpdatedAt. Returns domain.ErrNotFound for unknown ids.
	UpdateRule(ctx context.Context, id string, upd domain.RuleUpdate) (domain.AlertRule, error)

	// DeleteRule removes the rule. Triggers referencing it are kept as
	// an audit trail.
	DeleteRule(ctx context.Context, id string) error

	// ListActiveByOwner returns the owner's active rules in no
	// particular order.
	ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error)

	// ListByOwner returns all of the owner's rules, newest CreatedAt
	// first.
	ListByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error)

	// AppendTrigger stores a trigger record and returns it with its
	// assigned id.
	AppendTrigger(ctx context.Context, t domain.AlertTrigger) (domain.AlertTrigger, error)

	// ListTriggersByOwner returns triggers for all rules the owner has
	// ever had, newest first, truncated to limit (DefaultTriggerLimit
	// when limit <= 0).
	ListTriggersByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AlertTrigger, error)

	// Acknowledge flips a trigger's acknowledged flag. Idempotent.
	Acknowledge(ctx context.Context, triggerID string) error

	// UnacknowledgedCount counts the owner's unacknowledged triggers.
	UnacknowledgedCount(ctx context.Context, ownerID string) (int, error)
}

// ReadingStore persists readings and answers bounded range queries.
type ReadingStore interface {
	Append(ctx context.Context, r domain.Reading) (string, error)
	QueryRange(ctx context.Context, start, end time.Time, f domain.ReadingFilter) ([]domain.Reading, error)
}

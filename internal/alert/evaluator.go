// Package alert evaluates readings against user-defined threshold
// rules and records violations.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/store"
)

type Evaluator struct {
	rules store.RuleStore
}

func NewEvaluator(rules store.RuleStore) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate checks the reading against the owner's active rules and
// persists a trigger for every bound crossed. Both bounds of one rule
// can fire on the same reading; the evaluator trusts stored rules and
// does not re-validate them.
//
// Trigger persistence is best effort: a failed write does not stop the
// remaining writes. Stored triggers are returned in rule-iteration
// order together with the joined persistence failures, if any.
func (e *Evaluator) Evaluate(ctx context.Context, reading domain.Reading, ownerID string) ([]domain.AlertTrigger, error) {
	rules, err := e.rules.ListActiveByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	var stored []domain.AlertTrigger
	var warnings []error
	for _, rule := range rules {
		value := reading.Value(rule.Metric)

		if rule.MaxThreshold != nil && value > *rule.MaxThreshold {
			t, err := e.rules.AppendTrigger(ctx, domain.AlertTrigger{
				RuleID:        rule.ID,
				Metric:        rule.Metric,
				ObservedValue: value,
				Direction:     domain.DirectionAbove,
				Timestamp:     reading.Timestamp,
			})
			if err != nil {
				warnings = append(warnings, fmt.Errorf("rule %s above: %w", rule.ID, err))
			} else {
				stored = append(stored, t)
			}
		}

		if rule.MinThreshold != nil && value < *rule.MinThreshold {
			t, err := e.rules.AppendTrigger(ctx, domain.AlertTrigger{
				RuleID:        rule.ID,
				Metric:        rule.Metric,
				ObservedValue: value,
				Direction:     domain.DirectionBelow,
				Timestamp:     reading.Timestamp,
			})
			if err != nil {
				warnings = append(warnings, fmt.Errorf("rule %s below: %w", rule.ID, err))
			} else {
				stored = append(stored, t)
			}
		}
	}

	return stored, errors.Join(warnings...)
}

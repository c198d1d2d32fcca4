package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// Memory keeps rules, triggers and readings in process memory. It backs
// the test suites; the binaries use Postgres or DynamoDB.
type Memory struct {
	mu       sync.RWMutex
	rules    map[string]domain.AlertRule
	triggers map[string]domain.AlertTrigger
	// ruleOwners survives rule deletion so triggers of deleted rules
	// remain queryable by owner.
	ruleOwners map[string]string
	readings   []domain.Reading
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		rules:      make(map[string]domain.AlertRule),
		triggers:   make(map[string]domain.AlertTrigger),
		ruleOwners: make(map[string]string),
		now:        time.Now,
	}
}

// WithClock overrides the timestamp source. Test hook.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) CreateRule(_ context.Context, rule domain.AlertRule) (domain.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rule.ID = uuid.NewString()
	rule.CreatedAt = m.now()
	rule.UpdatedAt = rule.CreatedAt
	m.rules[rule.ID] = rule
	m.ruleOwners[rule.ID] = rule.OwnerID
	return rule, nil
}

func (m *Memory) UpdateRule(_ context.Context, id string, upd domain.RuleUpdate) (domain.AlertRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rule, ok := m.rules[id]
	if !ok {
		return domain.AlertRule{}, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}

	merged := upd.ApplyTo(rule)
	if err := merged.Validate(); err != nil {
		return domain.AlertRule{}, err
	}
	merged.UpdatedAt = m.now()
	m.rules[id] = merged
	return merged, nil
}

func (m *Memory) DeleteRule(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	delete(m.rules, id)
	return nil
}

func (m *Memory) ListActiveByOwner(_ context.Context, ownerID string) ([]domain.AlertRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.AlertRule
	for _, r := range m.rules {
		if r.OwnerID == ownerID && r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) ListByOwner(_ context.Context, ownerID string) ([]domain.AlertRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.AlertRule
	for _, r := range m.rules {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) AppendTrigger(_ context.Context, t domain.AlertTrigger) (domain.AlertTrigger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.NewString()
	m.triggers[t.ID] = t
	return t, nil
}

func (m *Memory) ListTriggersByOwner(_ context.Context, ownerID string, limit int) ([]domain.AlertTrigger, error) {
	if limit <= 0 {
		limit = DefaultTriggerLimit
	}

	out := m.triggersByOwner(ownerID)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Acknowledge(_ context.Context, triggerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.triggers[triggerID]
	if !ok {
		return fmt.Errorf("trigger %s: %w", triggerID, domain.ErrNotFound)
	}
	t.Acknowledged = true
	m.triggers[triggerID] = t
	return nil
}

func (m *Memory) UnacknowledgedCount(_ context.Context, ownerID string) (int, error) {
	count := 0
	for _, t := range m.triggersByOwner(ownerID) {
		if !t.Acknowledged {
			count++
		}
	}
	return count, nil
}

func (m *Memory) triggersByOwner(ownerID string) []domain.AlertTrigger {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.AlertTrigger
	for _, t := range m.triggers {
		if m.ruleOwners[t.RuleID] == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func (m *Memory) Append(_ context.Context, r domain.Reading) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.NewString()
	m.readings = append(m.readings, r)
	return r.ID, nil
}

func (m *Memory) QueryRange(_ context.Context, start, end time.Time, f domain.ReadingFilter) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Reading
	for _, r := range m.readings {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

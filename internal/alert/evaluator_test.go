package alert_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/caiomathol/weatherwatch/internal/alert"
	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/store"
)

func f64(v float64) *float64 { return &v }

func mustCreate(t *testing.T, m *store.Memory, rule domain.AlertRule) domain.AlertRule {
	t.Helper()
	created, err := m.CreateRule(context.Background(), rule)
	require.NoError(t, err)
	return created
}

func reading(temp, hum float64) domain.Reading {
	return domain.Reading{
		Temperature: temp,
		Humidity:    hum,
		Timestamp:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMaxOnlyRule(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "hot", Metric: domain.MetricTemperature,
		MaxThreshold: f64(30), Active: true,
	})
	e := alert.NewEvaluator(m)

	triggers, err := e.Evaluate(ctx, reading(32, 50), "u1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	require.Equal(t, domain.DirectionAbove, triggers[0].Direction)
	require.Equal(t, 32.0, triggers[0].ObservedValue)
	require.NotEmpty(t, triggers[0].ID)

	// At the threshold is not a violation; only strictly above.
	triggers, err = e.Evaluate(ctx, reading(30, 50), "u1")
	require.NoError(t, err)
	require.Empty(t, triggers)

	triggers, err = e.Evaluate(ctx, reading(28, 50), "u1")
	require.NoError(t, err)
	require.Empty(t, triggers)
}

func TestBothBoundsBetweenIsQuiet(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "humidity band", Metric: domain.MetricHumidity,
		MinThreshold: f64(20), MaxThreshold: f64(80), Active: true,
	})
	e := alert.NewEvaluator(m)

	triggers, err := e.Evaluate(ctx, reading(25, 50), "u1")
	require.NoError(t, err)
	require.Empty(t, triggers)

	triggers, err = e.Evaluate(ctx, reading(25, 15), "u1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	require.Equal(t, domain.DirectionBelow, triggers[0].Direction)
	require.Equal(t, 15.0, triggers[0].ObservedValue)
}

func TestTwoRulesOnlyOneCrossed(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	tight := mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "tight", Metric: domain.MetricTemperature,
		MaxThreshold: f64(25), Active: true,
	})
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "loose", Metric: domain.MetricTemperature,
		MaxThreshold: f64(30), Active: true,
	})
	e := alert.NewEvaluator(m)

	triggers, err := e.Evaluate(ctx, reading(28, 50), "u1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	require.Equal(t, tight.ID, triggers[0].RuleID)
}

func TestInactiveAndForeignRulesIgnored(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	inactive := domain.AlertRule{
		OwnerID: "u1", Name: "off", Metric: domain.MetricTemperature,
		MaxThreshold: f64(10), Active: false,
	}
	mustCreate(t, m, inactive)
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u2", Name: "other user", Metric: domain.MetricTemperature,
		MaxThreshold: f64(10), Active: true,
	})
	e := alert.NewEvaluator(m)

	triggers, err := e.Evaluate(ctx, reading(40, 50), "u1")
	require.NoError(t, err)
	require.Empty(t, triggers)
}

// Inconsistent stored rule where both bounds can be crossed at once:
// the evaluator trusts the store and emits two triggers.
func TestBothDirectionsFireIndependently(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	rule := mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "band", Metric: domain.MetricTemperature,
		MinThreshold: f64(10), MaxThreshold: f64(40), Active: true,
	})
	e := alert.NewEvaluator(m)

	// Crossing above only.
	triggers, err := e.Evaluate(ctx, reading(45, 50), "u1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)

	// Both sides on separate readings accumulate separate records.
	triggers, err = e.Evaluate(ctx, reading(5, 50), "u1")
	require.NoError(t, err)
	require.Len(t, triggers, 1)
	require.Equal(t, domain.DirectionBelow, triggers[0].Direction)

	all, err := m.ListTriggersByOwner(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, tr := range all {
		require.Equal(t, rule.ID, tr.RuleID)
	}
}

// flakyStore fails the first AppendTrigger, then delegates.
type flakyStore struct {
	store.RuleStore
	failures int
}

func (f *flakyStore) AppendTrigger(ctx context.Context, t domain.AlertTrigger) (domain.AlertTrigger, error) {
	if f.failures > 0 {
		f.failures--
		return domain.AlertTrigger{}, domain.ErrStoreUnavailable
	}
	return f.RuleStore.AppendTrigger(ctx, t)
}

func TestPersistenceFailuresAreBestEffort(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "a", Metric: domain.MetricTemperature,
		MaxThreshold: f64(25), Active: true,
	})
	mustCreate(t, m, domain.AlertRule{
		OwnerID: "u1", Name: "b", Metric: domain.MetricTemperature,
		MaxThreshold: f64(26), Active: true,
	})

	e := alert.NewEvaluator(&flakyStore{RuleStore: m, failures: 1})

	triggers, err := e.Evaluate(ctx, reading(30, 50), "u1")
	require.Len(t, triggers, 1) // the surviving write is still returned
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrStoreUnavailable))
}

package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

func TestComputeStats(t *testing.T) {
	readings := []domain.Reading{
		{Temperature: 20, Humidity: 40},
		{Temperature: 30, Humidity: 60},
		{Temperature: 25, Humidity: 80},
	}

	s := domain.ComputeStats(readings)
	require.Equal(t, 3, s.Count)
	require.Equal(t, 25.0, s.AvgTemp)
	require.Equal(t, 20.0, s.MinTemp)
	require.Equal(t, 30.0, s.MaxTemp)
	require.Equal(t, 60.0, s.AvgHumidity)
	require.Equal(t, 40.0, s.MinHumidity)
	require.Equal(t, 80.0, s.MaxHumidity)
}

func TestComputeStatsEmpty(t *testing.T) {
	s := domain.ComputeStats(nil)
	require.Equal(t, 0, s.Count)
}

func TestReadingFilterMatches(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	r := domain.Reading{Temperature: 25, Humidity: 55}

	require.True(t, domain.ReadingFilter{}.Matches(r))
	require.True(t, domain.ReadingFilter{MinTemperature: f(25)}.Matches(r))
	require.False(t, domain.ReadingFilter{MinTemperature: f(26)}.Matches(r))
	require.False(t, domain.ReadingFilter{MaxHumidity: f(50)}.Matches(r))
	require.True(t, domain.ReadingFilter{MinHumidity: f(50), MaxHumidity: f(60)}.Matches(r))
}

func TestRuleUpdateApplyTo(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	rule := domain.AlertRule{Name: "old", Metric: domain.MetricTemperature, MaxThreshold: f(30), Active: true}

	name := "new"
	active := false
	merged := domain.RuleUpdate{Name: &name, Active: &active, MinThreshold: f(5)}.ApplyTo(rule)

	require.Equal(t, "new", merged.Name)
	require.False(t, merged.Active)
	require.Equal(t, 5.0, *merged.MinThreshold)
	require.Equal(t, 30.0, *merged.MaxThreshold)
	require.Equal(t, domain.MetricTemperature, merged.Metric)
}

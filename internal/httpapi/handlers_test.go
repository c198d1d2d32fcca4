package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/httpapi"
	"github.com/caiomathol/weatherwatch/internal/session"
	"github.com/caiomathol/weatherwatch/internal/store"
)

func f64(v float64) *float64 { return &v }

func newApp(mem *store.Memory, owner string) *fiber.App {
	app := fiber.New()
	httpapi.Register(app, mem, mem, session.NewStatic(owner))
	return app
}

func TestCreateRule(t *testing.T) {
	app := newApp(store.NewMemory(), "u1")

	body := `{"name":"hot","metric":"temperature","max_threshold":30}`
	req := httptest.NewRequest("POST", "/rules", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var rule domain.AlertRule
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rule))
	require.NotEmpty(t, rule.ID)
	require.Equal(t, "u1", rule.OwnerID)
	require.True(t, rule.Active) // default
}

func TestCreateRuleInvalidIsDistinguishable(t *testing.T) {
	app := newApp(store.NewMemory(), "u1")

	body := `{"name":"empty","metric":"temperature"}`
	req := httptest.NewRequest("POST", "/rules", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Contains(t, out["error"], "at least one threshold")
}

func TestCreateRuleRequiresSession(t *testing.T) {
	app := newApp(store.NewMemory(), "")

	req := httptest.NewRequest("POST", "/rules", bytes.NewBufferString(`{"name":"x","metric":"temperature","max_threshold":1}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateUnknownRule(t *testing.T) {
	app := newApp(store.NewMemory(), "u1")

	req := httptest.NewRequest("PATCH", "/rules/nope", bytes.NewBufferString(`{"name":"renamed"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAcknowledgeFlow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	app := newApp(mem, "u1")

	rule, err := mem.CreateRule(ctx, domain.AlertRule{
		OwnerID: "u1", Name: "hot", Metric: domain.MetricTemperature,
		MaxThreshold: f64(30), Active: true,
	})
	require.NoError(t, err)

	trig, err := mem.AppendTrigger(ctx, domain.AlertTrigger{
		RuleID: rule.ID, Metric: domain.MetricTemperature,
		ObservedValue: 35, Direction: domain.DirectionAbove, Timestamp: time.Now(),
	})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("POST", fmt.Sprintf("/triggers/%s/ack", trig.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	// Second ack stays a no-op success.
	resp, err = app.Test(httptest.NewRequest("POST", fmt.Sprintf("/triggers/%s/ack", trig.ID), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/triggers", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var triggers []domain.AlertTrigger
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&triggers))
	require.Len(t, triggers, 1)
	require.True(t, triggers[0].Acknowledged)
}

func TestListReadingsWithFilters(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	app := newApp(mem, "u1")

	now := time.Now()
	for i, temp := range []float64{18, 22, 26} {
		_, err := mem.Append(ctx, domain.Reading{
			Temperature: temp, Humidity: 50,
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/readings?minTemp=20", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var readings []domain.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&readings))
	require.Len(t, readings, 2)
	for _, r := range readings {
		require.GreaterOrEqual(t, r.Temperature, 20.0)
	}
}

func TestBadTimeRange(t *testing.T) {
	app := newApp(store.NewMemory(), "u1")

	resp, err := app.Test(httptest.NewRequest("GET", "/readings?start=yesterday", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTodayStats(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	app := newApp(mem, "u1")

	now := time.Now()
	for _, temp := range []float64{20, 30} {
		_, err := mem.Append(ctx, domain.Reading{Temperature: temp, Humidity: 50, Timestamp: now})
		require.NoError(t, err)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/stats/today", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats domain.RangeStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, 2, stats.Count)
	require.Equal(t, 25.0, stats.AvgTemp)
	require.Equal(t, 30.0, stats.MaxTemp)
}

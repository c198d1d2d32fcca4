// Package httpapi is the user-facing surface: rule CRUD, trigger
// history and acknowledge, reading history and stats.
package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/caiomathol/weatherwatch/internal/domain"
	"github.com/caiomathol/weatherwatch/internal/session"
	"github.com/caiomathol/weatherwatch/internal/store"
)

func Register(app *fiber.App, rules store.RuleStore, readings store.ReadingStore, sess session.Provider) {
	h := &handlers{rules: rules, readings: readings, session: sess}

	app.Post("/rules", h.createRule)
	app.Get("/rules", h.listRules)
	app.Patch("/rules/:id", h.updateRule)
	app.Delete("/rules/:id", h.deleteRule)

	app.Get("/triggers", h.listTriggers)
	app.Post("/triggers/:id/ack", h.acknowledge)

	app.Get("/readings", h.listReadings)
	app.Get("/stats/today", h.todayStats)
}

type handlers struct {
	rules    store.RuleStore
	readings store.ReadingStore
	session  session.Provider
}

type ruleRequest struct {
	Name         string        `json:"name"`
	Metric       domain.Metric `json:"metric"`
	MinThreshold *float64      `json:"min_threshold"`
	MaxThreshold *float64      `json:"max_threshold"`
	Active       *bool         `json:"active"`
}

func (h *handlers) createRule(c *fiber.Ctx) error {
	ownerID, ok := h.session.CurrentOwnerID()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no session"})
	}

	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule, err := h.rules.CreateRule(c.Context(), domain.AlertRule{
		OwnerID:      ownerID,
		Name:         req.Name,
		Metric:       req.Metric,
		MinThreshold: req.MinThreshold,
		MaxThreshold: req.MaxThreshold,
		Active:       active,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *handlers) listRules(c *fiber.Ctx) error {
	ownerID, ok := h.session.CurrentOwnerID()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no session"})
	}

	items, err := h.rules.ListByOwner(c.Context(), ownerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) updateRule(c *fiber.Ctx) error {
	var upd domain.RuleUpdate
	if err := c.BodyParser(&upd); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	rule, err := h.rules.UpdateRule(c.Context(), c.Params("id"), upd)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(rule)
}

func (h *handlers) deleteRule(c *fiber.Ctx) error {
	if err := h.rules.DeleteRule(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) listTriggers(c *fiber.Ctx) error {
	ownerID, ok := h.session.CurrentOwnerID()
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no session"})
	}

	limit := c.QueryInt("limit", 0)
	items, err := h.rules.ListTriggersByOwner(c.Context(), ownerID, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) acknowledge(c *fiber.Ctx) error {
	if err := h.rules.Acknowledge(c.Context(), c.Params("id")); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) listReadings(c *fiber.Ctx) error {
	end := time.Now()
	start := end.Add(-24 * time.Hour)
	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be RFC3339"})
		}
		start = t
	}
	if s := c.Query("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "end must be RFC3339"})
		}
		end = t
	}

	filter := domain.ReadingFilter{
		MinTemperature: queryFloat(c, "minTemp"),
		MaxTemperature: queryFloat(c, "maxTemp"),
		MinHumidity:    queryFloat(c, "minHumidity"),
		MaxHumidity:    queryFloat(c, "maxHumidity"),
	}

	items, err := h.readings.QueryRange(c.Context(), start, end, filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(items)
}

func (h *handlers) todayStats(c *fiber.Ctx) error {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	items, err := h.readings.QueryRange(c.Context(), midnight, now, domain.ReadingFilter{})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(domain.ComputeStats(items))
}

func queryFloat(c *fiber.Ctx, name string) *float64 {
	s := c.Query(name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// errorResponse keeps validation failures distinguishable from generic
// ones so the client can show a corrective message.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRule):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "storage temporarily unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}

package domain

import "time"

// Metric identifies which reading field an alert rule watches.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

func (m Metric) Valid() bool {
	return m == MetricTemperature || m == MetricHumidity
}

// Direction says which bound a trigger crossed.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Reading is one normalized temperature/humidity sample. The timestamp
// is assigned by the receiving client at arrival; sender clocks are not
// trusted.
type Reading struct {
	ID          string    `db:"id" json:"id,omitempty"`
	Temperature float64   `db:"temperature" json:"temperature"`
	Humidity    float64   `db:"humidity" json:"humidity"`
	Timestamp   time.Time `db:"timestamp" json:"timestamp"`
	SourceID    string    `db:"source_id" json:"source_id,omitempty"`
}

// Value returns the reading field matching the metric.
func (r Reading) Value(m Metric) float64 {
	if m == MetricHumidity {
		return r.Humidity
	}
	return r.Temperature
}

// AlertRule is a user-defined threshold watch on one metric. At least
// one bound must be set; when both are set, MinThreshold < MaxThreshold.
type AlertRule struct {
	ID           string    `db:"id" json:"id,omitempty"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	Name         string    `db:"name" json:"name"`
	Metric       Metric    `db:"metric" json:"metric"`
	MinThreshold *float64  `db:"min_threshold" json:"min_threshold,omitempty"`
	MaxThreshold *float64  `db:"max_threshold" json:"max_threshold,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks the invariants enforced at create and update time.
func (r AlertRule) Validate() error {
	if !r.Metric.Valid() {
		return invalidRule("metric must be temperature or humidity")
	}
	if r.MinThreshold == nil && r.MaxThreshold == nil {
		return invalidRule("set at least one threshold")
	}
	if r.MinThreshold != nil && r.MaxThreshold != nil && *r.MinThreshold >= *r.MaxThreshold {
		return invalidRule("min threshold must be below max threshold")
	}
	return nil
}

// RuleUpdate is a partial rule change. Nil fields are left unchanged;
// an existing bound cannot be cleared, only replaced.
type RuleUpdate struct {
	Name         *string  `json:"name,omitempty"`
	Metric       *Metric  `json:"metric,omitempty"`
	MinThreshold *float64 `json:"min_threshold,omitempty"`
	MaxThreshold *float64 `json:"max_threshold,omitempty"`
	Active       *bool    `json:"active,omitempty"`
}

// ApplyTo merges the update into a copy of the rule. The caller
// re-validates the merged result.
func (u RuleUpdate) ApplyTo(r AlertRule) AlertRule {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Metric != nil {
		r.Metric = *u.Metric
	}
	if u.MinThreshold != nil {
		r.MinThreshold = u.MinThreshold
	}
	if u.MaxThreshold != nil {
		r.MaxThreshold = u.MaxThreshold
	}
	if u.Active != nil {
		r.Active = *u.Active
	}
	return r
}

// AlertTrigger records that a rule was violated at a point in time.
// Triggers outlive their rule: deleting a rule keeps its triggers.
type AlertTrigger struct {
	ID            string    `db:"id" json:"id,omitempty"`
	RuleID        string    `db:"rule_id" json:"rule_id"`
	Metric        Metric    `db:"metric" json:"metric"`
	ObservedValue float64   `db:"observed_value" json:"observed_value"`
	Direction     Direction `db:"direction" json:"direction"`
	Timestamp     time.Time `db:"timestamp" json:"timestamp"`
	Acknowledged  bool      `db:"acknowledged" json:"acknowledged"`
}

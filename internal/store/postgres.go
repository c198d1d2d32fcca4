package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/caiomathol/weatherwatch/internal/domain"
)

// History queries stay bounded; this matches the page size the
// dashboard requests.
const historyQueryLimit = 100

// Postgres is the local-dev counterpart of the hosted document store:
// readings, alert rules and triggers in three tables, shared by the
// ingestor and API processes.
type Postgres struct {
	db *sqlx.DB
}

func ConnectPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// InitSchema creates the tables if missing. Safe to run on every start.
func (p *Postgres) InitSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS readings (
			id BIGSERIAL PRIMARY KEY,
			temperature DOUBLE PRECISION NOT NULL,
			humidity DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			source_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_readings_timestamp ON readings (timestamp DESC);

		CREATE TABLE IF NOT EXISTS alert_rules (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			metric TEXT NOT NULL,
			min_threshold DOUBLE PRECISION,
			max_threshold DOUBLE PRECISION,
			active BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_alert_rules_owner ON alert_rules (owner_id);

		CREATE TABLE IF NOT EXISTS alert_triggers (
			id TEXT PRIMARY KEY,
			rule_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			metric TEXT NOT NULL,
			observed_value DOUBLE PRECISION NOT NULL,
			direction TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_alert_triggers_owner_time ON alert_triggers (owner_id, timestamp DESC);
	`)
	if err != nil {
		return fmt.Errorf("%w: init schema: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, r domain.Reading) (string, error) {
	var id string
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO readings (temperature, humidity, timestamp, source_id)
		 VALUES ($1, $2, $3, $4) RETURNING id::text`,
		r.Temperature, r.Humidity, r.Timestamp, r.SourceID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%w: insert reading: %v", domain.ErrStoreUnavailable, err)
	}
	return id, nil
}

func (p *Postgres) QueryRange(ctx context.Context, start, end time.Time, f domain.ReadingFilter) ([]domain.Reading, error) {
	var rows []domain.Reading
	err := p.db.SelectContext(ctx, &rows,
		`SELECT id::text AS id, temperature, humidity, timestamp, source_id
		 FROM readings
		 WHERE timestamp >= $1 AND timestamp <= $2
		 ORDER BY timestamp DESC
		 LIMIT $3`,
		start, end, historyQueryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query readings: %v", domain.ErrStoreUnavailable, err)
	}

	// Value filters run after the range query, on the bounded page.
	out := rows[:0]
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (p *Postgres) CreateRule(ctx context.Context, rule domain.AlertRule) (domain.AlertRule, error) {
	if err := rule.Validate(); err != nil {
		return domain.AlertRule{}, err
	}

	rule.ID = uuid.NewString()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt

	_, err := p.db.ExecContext(ctx,
		`INSERT INTO alert_rules (id, owner_id, name, metric, min_threshold, max_threshold, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rule.ID, rule.OwnerID, rule.Name, rule.Metric, rule.MinThreshold, rule.MaxThreshold,
		rule.Active, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("%w: insert rule: %v", domain.ErrStoreUnavailable, err)
	}
	return rule, nil
}

func (p *Postgres) UpdateRule(ctx context.Context, id string, upd domain.RuleUpdate) (domain.AlertRule, error) {
	var rule domain.AlertRule
	err := p.db.GetContext(ctx, &rule,
		`SELECT id, owner_id, name, metric, min_threshold, max_threshold, active, created_at, updated_at
		 FROM alert_rules WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AlertRule{}, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("%w: select rule: %v", domain.ErrStoreUnavailable, err)
	}

	merged := upd.ApplyTo(rule)
	if err := merged.Validate(); err != nil {
		return domain.AlertRule{}, err
	}
	merged.UpdatedAt = time.Now()

	_, err = p.db.ExecContext(ctx,
		`UPDATE alert_rules
		 SET name = $2, metric = $3, min_threshold = $4, max_threshold = $5, active = $6, updated_at = $7
		 WHERE id = $1`,
		merged.ID, merged.Name, merged.Metric, merged.MinThreshold, merged.MaxThreshold,
		merged.Active, merged.UpdatedAt,
	)
	if err != nil {
		return domain.AlertRule{}, fmt.Errorf("%w: update rule: %v", domain.ErrStoreUnavailable, err)
	}
	return merged, nil
}

// DeleteRule removes the rule only; its triggers keep their rows.
func (p *Postgres) DeleteRule(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM alert_rules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: delete rule: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (p *Postgres) ListActiveByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error) {
	var out []domain.AlertRule
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, owner_id, name, metric, min_threshold, max_threshold, active, created_at, updated_at
		 FROM alert_rules WHERE owner_id = $1 AND active`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list active rules: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

func (p *Postgres) ListByOwner(ctx context.Context, ownerID string) ([]domain.AlertRule, error) {
	var out []domain.AlertRule
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, owner_id, name, metric, min_threshold, max_threshold, active, created_at, updated_at
		 FROM alert_rules WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list rules: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

// AppendTrigger denormalizes the rule's owner onto the trigger row so
// owner queries survive rule deletion.
func (p *Postgres) AppendTrigger(ctx context.Context, t domain.AlertTrigger) (domain.AlertTrigger, error) {
	var ownerID string
	err := p.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM alert_rules WHERE id = $1`, t.RuleID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.AlertTrigger{}, fmt.Errorf("%w: resolve trigger owner: %v", domain.ErrStoreUnavailable, err)
	}

	t.ID = uuid.NewString()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO alert_triggers (id, rule_id, owner_id, metric, observed_value, direction, timestamp, acknowledged)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.RuleID, ownerID, t.Metric, t.ObservedValue, t.Direction, t.Timestamp, t.Acknowledged,
	)
	if err != nil {
		return domain.AlertTrigger{}, fmt.Errorf("%w: insert trigger: %v", domain.ErrStoreUnavailable, err)
	}
	return t, nil
}

func (p *Postgres) ListTriggersByOwner(ctx context.Context, ownerID string, limit int) ([]domain.AlertTrigger, error) {
	if limit <= 0 {
		limit = DefaultTriggerLimit
	}

	var out []domain.AlertTrigger
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, rule_id, metric, observed_value, direction, timestamp, acknowledged
		 FROM alert_triggers WHERE owner_id = $1
		 ORDER BY timestamp DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list triggers: %v", domain.ErrStoreUnavailable, err)
	}
	return out, nil
}

// Acknowledge is idempotent; re-acknowledging matches the row again and
// changes nothing.
func (p *Postgres) Acknowledge(ctx context.Context, triggerID string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE alert_triggers SET acknowledged = TRUE WHERE id = $1`, triggerID)
	if err != nil {
		return fmt.Errorf("%w: acknowledge trigger: %v", domain.ErrStoreUnavailable, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trigger %s: %w", triggerID, domain.ErrNotFound)
	}
	return nil
}

func (p *Postgres) UnacknowledgedCount(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := p.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM alert_triggers WHERE owner_id = $1 AND NOT acknowledged`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("%w: count triggers: %v", domain.ErrStoreUnavailable, err)
	}
	return count, nil
}

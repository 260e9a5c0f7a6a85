package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/copilot/models"
)

// ErrNotFound is returned when no archived plan matches an ID.
var ErrNotFound = errors.New("archived plan not found")

// Store archives business plan documents in Postgres. It complements the
// file-backed state manager: files remain the source of truth for live
// sessions, the archive keeps a durable, queryable copy.
type Store struct {
	DB *sql.DB
}

const defaultConnectTimeout = 5 * time.Second

// connectTimeout applies the default when no value is configured.
func connectTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultConnectTimeout
	}
	return d
}

// NewWithDSN opens a Postgres connection and verifies it within the given
// timeout (zero means the default).
func NewWithDSN(ctx context.Context, dsn string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout(timeout))
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Store{DB: db}, nil
}

// ArchivePlan upserts the latest snapshot of a plan document.
func (s *Store) ArchivePlan(ctx context.Context, planID string, plan models.BusinessPlan, stage models.Stage) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshalling plan document: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
        INSERT INTO plan_archive (plan_id, stage, document, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (plan_id) DO UPDATE SET stage = EXCLUDED.stage, document = EXCLUDED.document, updated_at = NOW()`,
		planID, string(stage), doc)
	if err != nil {
		return fmt.Errorf("archiving plan %s: %w", planID, err)
	}
	return nil
}

// GetPlan loads one archived plan snapshot.
func (s *Store) GetPlan(ctx context.Context, planID string) (models.BusinessPlan, models.Stage, error) {
	var (
		stage string
		doc   []byte
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT stage, document FROM plan_archive WHERE plan_id=$1`, planID).Scan(&stage, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading archived plan %s: %w", planID, err)
	}
	var plan models.BusinessPlan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return nil, "", fmt.Errorf("parsing archived plan %s: %w", planID, err)
	}
	return plan, models.Stage(stage), nil
}

// ArchivedPlan is the listing view of an archived snapshot.
type ArchivedPlan struct {
	PlanID    string       `json:"plan_id"`
	Stage     models.Stage `json:"stage"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ListPlans returns archived snapshots, most recently updated first.
func (s *Store) ListPlans(ctx context.Context) ([]ArchivedPlan, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT plan_id, stage, updated_at FROM plan_archive ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing archived plans: %w", err)
	}
	defer rows.Close()

	var out []ArchivedPlan
	for rows.Next() {
		var p ArchivedPlan
		var stage string
		if err := rows.Scan(&p.PlanID, &stage, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning archived plan: %w", err)
		}
		p.Stage = models.Stage(stage)
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePlan removes an archived snapshot.
func (s *Store) DeletePlan(ctx context.Context, planID string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM plan_archive WHERE plan_id=$1`, planID)
	if err != nil {
		return fmt.Errorf("deleting archived plan %s: %w", planID, err)
	}
	return nil
}

// Package history persists SignalSnapshots to Postgres: the durable record
// an alert creates, that the outcome grader later fills in once a game's
// closing line and result are known.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/pkg/models"
)

// Store wraps a Postgres connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres using cfg and configures the pool.
func Open(cfg config.HistoryConfig) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSignal inserts a new signal snapshot, assigning it a UUID if it
// doesn't already carry one, and returns the assigned ID.
func (s *Store) SaveSignal(ctx context.Context, snap models.SignalSnapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}

	query := `
		INSERT INTO signal_snapshots (
			id, event_id, market_key, signal_time, game_time,
			line_at_signal, confidence_level_at_signal, confidence_score_at_signal,
			first_mover_book, first_mover_tier
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.EventID, snap.MarketKey, snap.SignalTime, snap.GameTime,
		snap.LineAtSignal.String(), string(snap.ConfidenceLevelAtSignal), snap.ConfidenceScoreAtSignal,
		snap.FirstMoverBook, string(snap.FirstMoverTier),
	)
	if err != nil {
		return "", fmt.Errorf("insert signal snapshot: %w", err)
	}
	return snap.ID, nil
}

// UpdateSignal sets the closing line and outcome for signal id. It is
// idempotent: calling it again with an identical closingLine and outcome is
// a no-op rather than an error, matching the grader's at-least-once delivery.
func (s *Store) UpdateSignal(ctx context.Context, id string, closingLine decimal.Decimal, outcome models.Outcome) error {
	existing, err := s.getSignal(ctx, id)
	if err != nil {
		return err
	}
	if existing.Graded() && existing.ClosingLine.Equal(closingLine) && *existing.Outcome == outcome {
		return nil
	}

	query := `
		UPDATE signal_snapshots
		SET closing_line = $2, outcome = $3
		WHERE id = $1
	`
	_, err = s.db.ExecContext(ctx, query, id, closingLine.String(), string(outcome))
	if err != nil {
		return fmt.Errorf("update signal snapshot %s: %w", id, err)
	}
	return nil
}

func (s *Store) getSignal(ctx context.Context, id string) (models.SignalSnapshot, error) {
	query := `
		SELECT id, event_id, market_key, signal_time, game_time,
		       line_at_signal, confidence_level_at_signal, confidence_score_at_signal,
		       first_mover_book, first_mover_tier, closing_line, outcome
		FROM signal_snapshots
		WHERE id = $1
	`
	row := s.db.QueryRowContext(ctx, query, id)
	return scanSnapshot(row)
}

// SignalsForEvent returns every signal recorded for eventID, most recent
// first.
func (s *Store) SignalsForEvent(ctx context.Context, eventID string) ([]models.SignalSnapshot, error) {
	query := `
		SELECT id, event_id, market_key, signal_time, game_time,
		       line_at_signal, confidence_level_at_signal, confidence_score_at_signal,
		       first_mover_book, first_mover_tier, closing_line, outcome
		FROM signal_snapshots
		WHERE event_id = $1
		ORDER BY signal_time DESC
	`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("query signals for event %s: %w", eventID, err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// SignalsInRange returns every signal whose signal_time falls in [from, to].
func (s *Store) SignalsInRange(ctx context.Context, from, to time.Time) ([]models.SignalSnapshot, error) {
	query := `
		SELECT id, event_id, market_key, signal_time, game_time,
		       line_at_signal, confidence_level_at_signal, confidence_score_at_signal,
		       first_mover_book, first_mover_tier, closing_line, outcome
		FROM signal_snapshots
		WHERE signal_time BETWEEN $1 AND $2
		ORDER BY signal_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query signals in range: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// PendingOutcomes returns ungraded signals whose game has already started as
// of before, i.e. due for grading.
func (s *Store) PendingOutcomes(ctx context.Context, before time.Time) ([]models.SignalSnapshot, error) {
	query := `
		SELECT id, event_id, market_key, signal_time, game_time,
		       line_at_signal, confidence_level_at_signal, confidence_score_at_signal,
		       first_mover_book, first_mover_tier, closing_line, outcome
		FROM signal_snapshots
		WHERE outcome IS NULL AND game_time <= $1
		ORDER BY game_time ASC
	`
	rows, err := s.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("query pending outcomes: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scannable) (models.SignalSnapshot, error) {
	var (
		snap                    models.SignalSnapshot
		lineStr                 string
		level                   string
		tier                    string
		closingLineStr          sql.NullString
		outcome                 sql.NullString
	)

	err := row.Scan(
		&snap.ID, &snap.EventID, &snap.MarketKey, &snap.SignalTime, &snap.GameTime,
		&lineStr, &level, &snap.ConfidenceScoreAtSignal,
		&snap.FirstMoverBook, &tier, &closingLineStr, &outcome,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.SignalSnapshot{}, fmt.Errorf("signal not found")
		}
		return models.SignalSnapshot{}, fmt.Errorf("scan signal snapshot: %w", err)
	}

	snap.ConfidenceLevelAtSignal = models.ConfidenceLevel(level)
	snap.FirstMoverTier = models.BookTier(tier)
	snap.LineAtSignal, err = decimal.NewFromString(lineStr)
	if err != nil {
		return models.SignalSnapshot{}, fmt.Errorf("parse line_at_signal: %w", err)
	}

	if closingLineStr.Valid {
		cl, err := decimal.NewFromString(closingLineStr.String)
		if err != nil {
			return models.SignalSnapshot{}, fmt.Errorf("parse closing_line: %w", err)
		}
		snap.ClosingLine = &cl
	}
	if outcome.Valid {
		o := models.Outcome(outcome.String)
		snap.Outcome = &o
	}

	return snap, nil
}

func scanSnapshots(rows *sql.Rows) ([]models.SignalSnapshot, error) {
	var out []models.SignalSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal snapshots: %w", err)
	}
	return out, nil
}

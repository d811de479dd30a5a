package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"water_monitor/internal/models"

	"github.com/google/uuid"
)

type AlertSQLite struct {
	db *sql.DB
}

func NewAlertSQLite(db *sql.DB) *AlertSQLite { return &AlertSQLite{db: db} }

var _ AlertRepo = (*AlertSQLite)(nil)

const (
	insertAlertSQL  = `INSERT INTO alerts (id, level, type, message, acknowledged, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	selectAlertCols = `SELECT id, level, type, message, acknowledged, created_at FROM alerts`

	latestUnackAlertSQL = selectAlertCols + ` WHERE type = ? AND acknowledged = 0 ORDER BY created_at DESC LIMIT 1`
	countUnackAlertsSQL = `SELECT COUNT(*) FROM alerts WHERE acknowledged = 0`
	ackAlertSQL         = `UPDATE alerts SET acknowledged = 1 WHERE id = ? AND acknowledged = 0`
	alertByIDSQL        = selectAlertCols + ` WHERE id = ?`
)

// ErrAlertNotFound is returned by Acknowledge for unknown ids.
var ErrAlertNotFound = errors.New("alert not found")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(s rowScanner) (models.Alert, error) {
	var (
		a   models.Alert
		typ string
	)
	if err := s.Scan(&a.ID, &a.Level, &typ, &a.Message, &a.Acknowledged, &a.CreatedAt); err != nil {
		return models.Alert{}, err
	}
	a.Type = models.AlertType(typ)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *AlertSQLite) Create(ctx context.Context, a models.Alert) (models.Alert, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = toUTCOrNow(a.CreatedAt)

	_, err := r.db.ExecContext(ctx, insertAlertSQL, a.ID, a.Level, string(a.Type), a.Message, a.Acknowledged, a.CreatedAt)
	if err != nil {
		return models.Alert{}, fmt.Errorf("insert %s alert: %w", a.Type, err)
	}
	return a, nil
}

// FindLatestUnacknowledged returns the newest open alert of typ, or (nil, nil).
func (r *AlertSQLite) FindLatestUnacknowledged(ctx context.Context, typ models.AlertType) (*models.Alert, error) {
	a, err := scanAlert(r.db.QueryRowContext(ctx, latestUnackAlertSQL, string(typ)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select open %s alert: %w", typ, err)
	}
	return &a, nil
}

func (r *AlertSQLite) CountUnacknowledged(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUnackAlertsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count open alerts: %w", err)
	}
	return n, nil
}

// Acknowledge flips acknowledged to true. Acknowledging twice is a no-op that
// still returns the stored alert.
func (r *AlertSQLite) Acknowledge(ctx context.Context, id string) (*models.Alert, error) {
	if _, err := r.db.ExecContext(ctx, ackAlertSQL, id); err != nil {
		return nil, fmt.Errorf("acknowledge alert %q: %w", id, err)
	}
	a, err := scanAlert(r.db.QueryRowContext(ctx, alertByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("select alert %q: %w", id, err)
	}
	return &a, nil
}

// List returns alerts newest first.
func (r *AlertSQLite) List(ctx context.Context, f AlertFilter) ([]models.Alert, error) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To.UTC())
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Acknowledged != nil {
		conds = append(conds, "acknowledged = ?")
		args = append(args, *f.Acknowledged)
	}

	q := selectAlertCols
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, listLimit(f.Limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.Alert, 0, 32)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

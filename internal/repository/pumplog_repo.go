package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"water_monitor/internal/models"

	"github.com/google/uuid"
)

type PumpLogSQLite struct {
	db *sql.DB
}

func NewPumpLogSQLite(db *sql.DB) *PumpLogSQLite { return &PumpLogSQLite{db: db} }

var _ PumpLogRepo = (*PumpLogSQLite)(nil)

const (
	insertPumpLogSQL = `
		INSERT INTO pump_logs (id, is_active, start_time, end_time, duration, activated_by,
			water_level_at_activation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	selectPumpLogCols = `SELECT id, is_active, start_time, end_time, duration, activated_by, water_level_at_activation, created_at FROM pump_logs`

	latestOpenPumpLogSQL = selectPumpLogCols + ` WHERE is_active = 1 AND start_time IS NOT NULL AND end_time IS NULL ORDER BY start_time DESC LIMIT 1`
	latestPumpLogSQL     = selectPumpLogCols + ` ORDER BY created_at DESC LIMIT 1`
	closePumpLogSQL      = `UPDATE pump_logs SET end_time = ?, duration = ? WHERE id = ?`
)

// ErrPumpLogNotFound is returned by Update when no row matched the id.
var ErrPumpLogNotFound = errors.New("pump log not found")

func scanPumpLog(s rowScanner) (models.PumpLog, error) {
	var (
		l        models.PumpLog
		start    sql.NullTime
		end      sql.NullTime
		duration sql.NullFloat64
		by       string
		level    sql.NullFloat64
	)
	if err := s.Scan(&l.ID, &l.IsActive, &start, &end, &duration, &by, &level, &l.CreatedAt); err != nil {
		return models.PumpLog{}, err
	}
	if start.Valid {
		t := start.Time.UTC()
		l.StartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		l.EndTime = &t
	}
	if duration.Valid {
		d := duration.Float64
		l.Duration = &d
	}
	if level.Valid {
		v := level.Float64
		l.WaterLevelAtActivation = &v
	}
	l.ActivatedBy = models.PumpMode(by)
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func (r *PumpLogSQLite) Create(ctx context.Context, l models.PumpLog) (models.PumpLog, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	l.CreatedAt = toUTCOrNow(l.CreatedAt)

	_, err := r.db.ExecContext(ctx, insertPumpLogSQL,
		l.ID,
		l.IsActive,
		nullTime(l.StartTime),
		nullTime(l.EndTime),
		nullFloat(l.Duration),
		string(l.ActivatedBy),
		nullFloat(l.WaterLevelAtActivation),
		l.CreatedAt,
	)
	if err != nil {
		return models.PumpLog{}, fmt.Errorf("insert pump log: %w", err)
	}
	return l, nil
}

// Update closes a pump log row. Only non-nil fields in u are meaningful; both are
// written together since a close always sets end time and duration.
func (r *PumpLogSQLite) Update(ctx context.Context, id string, u PumpLogUpdate) error {
	res, err := r.db.ExecContext(ctx, closePumpLogSQL, nullTime(u.EndTime), nullFloat(u.Duration), id)
	if err != nil {
		return fmt.Errorf("update pump log %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for pump log %q: %w", id, err)
	}
	if n == 0 {
		return ErrPumpLogNotFound
	}
	return nil
}

// FindLatestOpen returns the newest activation row without an end time, or (nil, nil).
func (r *PumpLogSQLite) FindLatestOpen(ctx context.Context) (*models.PumpLog, error) {
	return r.queryOne(ctx, latestOpenPumpLogSQL, "select open pump log")
}

// Latest returns the most recently written row, or (nil, nil).
func (r *PumpLogSQLite) Latest(ctx context.Context) (*models.PumpLog, error) {
	return r.queryOne(ctx, latestPumpLogSQL, "select latest pump log")
}

func (r *PumpLogSQLite) queryOne(ctx context.Context, q, what string) (*models.PumpLog, error) {
	l, err := scanPumpLog(r.db.QueryRowContext(ctx, q))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return &l, nil
}

// List returns pump logs created within [from, to], newest first.
func (r *PumpLogSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.PumpLog, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, to.UTC())
	}

	q := selectPumpLogCols
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, listLimit(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select pump logs: %w", err)
	}
	defer rows.Close()

	out := make([]models.PumpLog, 0, 32)
	for rows.Next() {
		l, err := scanPumpLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pump log: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

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

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL  = `INSERT INTO water_readings (id, level, unit, observed_at) VALUES (?, ?, ?, ?)`
	selectReadingCols = `SELECT id, level, unit, observed_at FROM water_readings`
	latestReadingSQL  = selectReadingCols + ` ORDER BY observed_at DESC LIMIT 1`
)

// Append inserts a reading, assigning an ID and timestamp when missing.
func (r *ReadingSQLite) Append(ctx context.Context, rd models.Reading) (models.Reading, error) {
	if rd.ID == "" {
		rd.ID = uuid.NewString()
	}
	rd.ObservedAt = toUTCOrNow(rd.ObservedAt)

	if _, err := r.db.ExecContext(ctx, insertReadingSQL, rd.ID, rd.Level, rd.Unit, rd.ObservedAt); err != nil {
		return models.Reading{}, fmt.Errorf("insert reading: %w", err)
	}
	return rd, nil
}

// Latest returns the most recent reading, or (nil, nil) when none exist.
func (r *ReadingSQLite) Latest(ctx context.Context) (*models.Reading, error) {
	var rd models.Reading
	err := r.db.QueryRowContext(ctx, latestReadingSQL).Scan(&rd.ID, &rd.Level, &rd.Unit, &rd.ObservedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select latest reading: %w", err)
	}
	rd.ObservedAt = rd.ObservedAt.UTC()
	return &rd, nil
}

// List returns readings within [from, to] (zero bounds are open), newest first.
func (r *ReadingSQLite) List(ctx context.Context, from, to time.Time, limit int) ([]models.Reading, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "observed_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		conds = append(conds, "observed_at <= ?")
		args = append(args, to.UTC())
	}

	q := selectReadingCols
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY observed_at DESC LIMIT ?"
	args = append(args, listLimit(limit))

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select readings: %w", err)
	}
	defer rows.Close()

	out := make([]models.Reading, 0, 64)
	for rows.Next() {
		var rd models.Reading
		if err := rows.Scan(&rd.ID, &rd.Level, &rd.Unit, &rd.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		rd.ObservedAt = rd.ObservedAt.UTC()
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

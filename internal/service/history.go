package service

import (
	"context"
	"strings"
	"time"

	"water_monitor/internal/models"
	"water_monitor/internal/repository"
)

// HistoryFilter bounds reading and pump-log listings. Zero times are open bounds.
type HistoryFilter struct {
	From  time.Time
	To    time.Time
	Limit int
}

type HistoryService struct {
	readings repository.ReadingRepo
	pumpLogs repository.PumpLogRepo
}

func NewHistoryService(readings repository.ReadingRepo, pumpLogs repository.PumpLogRepo) *HistoryService {
	return &HistoryService{readings: readings, pumpLogs: pumpLogs}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func normalizeType(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// normalizeRange converts both bounds to UTC and rejects from > to.
func normalizeRange(from, to time.Time) (time.Time, time.Time, error) {
	from = normalizeToUTC(from)
	to = normalizeToUTC(to)
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, errInvalidTimeRange
	}
	return from, to, nil
}

func (s *HistoryService) ListReadings(ctx context.Context, f HistoryFilter) ([]models.Reading, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.readings.List(ctx, from, to, f.Limit)
}

// LatestReading returns nil when nothing was ingested yet.
func (s *HistoryService) LatestReading(ctx context.Context) (*models.Reading, error) {
	return s.readings.Latest(ctx)
}

func (s *HistoryService) ListPumpLogs(ctx context.Context, f HistoryFilter) ([]models.PumpLog, error) {
	from, to, err := normalizeRange(f.From, f.To)
	if err != nil {
		return nil, err
	}
	return s.pumpLogs.List(ctx, from, to, f.Limit)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"water_monitor/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var pumpLogCols = []string{"id", "is_active", "start_time", "end_time", "duration",
	"activated_by", "water_level_at_activation", "created_at"}

func TestPumpLogSQLite_Create_Activation(t *testing.T) {
	db, mock := newSQLMock(t)

	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	level := 80.0

	mock.ExpectExec(regexp.QuoteMeta(insertPumpLogSQL)).
		WithArgs(sqlmock.AnyArg(), true, start, nil, nil, "auto", 80.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := NewPumpLogSQLite(db).Create(context.Background(), models.PumpLog{
		IsActive: true, StartTime: &start, ActivatedBy: models.PumpModeAuto, WaterLevelAtActivation: &level,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || !got.Open() {
		t.Fatalf("expected open log with id, got %+v", got)
	}
}

func TestPumpLogSQLite_Update(t *testing.T) {
	end := time.Date(2025, 7, 1, 9, 10, 0, 0, time.UTC)
	dur := 600.0

	tests := []struct {
		name    string
		result  func(sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "closed",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(closePumpLogSQL)).
					WithArgs(end, 600.0, "p-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "no such row",
			result: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(closePumpLogSQL)).
					WithArgs(end, 600.0, "p-1").
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrPumpLogNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newSQLMock(t)
			tt.result(mock)

			err := NewPumpLogSQLite(db).Update(context.Background(), "p-1", PumpLogUpdate{EndTime: &end, Duration: &dur})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPumpLogSQLite_FindLatestOpen(t *testing.T) {
	start := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	t.Run("open row", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(latestOpenPumpLogSQL)).
			WillReturnRows(sqlmock.NewRows(pumpLogCols).AddRow("p-1", true, start, nil, nil, "manual", nil, start))

		got, err := NewPumpLogSQLite(db).FindLatestOpen(context.Background())
		if err != nil {
			t.Fatalf("FindLatestOpen: %v", err)
		}
		if got == nil || !got.Open() || got.ActivatedBy != models.PumpModeManual || got.WaterLevelAtActivation != nil {
			t.Fatalf("unexpected log: %+v", got)
		}
	})

	t.Run("none", func(t *testing.T) {
		db, mock := newSQLMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(latestOpenPumpLogSQL)).WillReturnError(sql.ErrNoRows)

		got, err := NewPumpLogSQLite(db).FindLatestOpen(context.Background())
		if err != nil || got != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", got, err)
		}
	})
}

func TestPumpLogSQLite_Latest_ClosedRow(t *testing.T) {
	db, mock := newSQLMock(t)

	end := time.Date(2025, 7, 1, 9, 10, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(latestPumpLogSQL)).
		WillReturnRows(sqlmock.NewRows(pumpLogCols).AddRow("p-2", false, nil, end, nil, "auto", nil, end))

	got, err := NewPumpLogSQLite(db).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got == nil || got.IsActive || got.EndTime == nil || !got.EndTime.Equal(end) || got.StartTime != nil {
		t.Fatalf("unexpected log: %+v", got)
	}
}

func TestPumpLogSQLite_List(t *testing.T) {
	db, mock := newSQLMock(t)

	to := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(selectPumpLogCols + " WHERE created_at <= ? ORDER BY created_at DESC LIMIT ?")).
		WithArgs(to, defaultListLimit).
		WillReturnError(errors.New("closed"))

	_, err := NewPumpLogSQLite(db).List(context.Background(), time.Time{}, to, 10000)
	if err == nil {
		t.Fatalf("expected error")
	}
}

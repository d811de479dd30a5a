package handlers

import (
	"context"
	"net/http"
	"time"

	"water_monitor/internal/models"
	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockIngest struct {
	res    service.IngestResult
	err    error
	calls  int
	lastIn service.ReadingInput
}

func (m *mockIngest) Ingest(ctx context.Context, in service.ReadingInput) (service.IngestResult, error) {
	m.calls++
	m.lastIn = in
	return m.res, m.err
}

type mockPump struct {
	state       models.PumpState
	modeOut     service.PumpOutcome
	modeErr     error
	commandOut  service.PumpOutcome
	commandErr  error
	lastMode    models.PumpMode
	lastCommand *bool
}

func (m *mockPump) PumpStatus() models.PumpState { return m.state }

func (m *mockPump) SetPumpMode(ctx context.Context, mode models.PumpMode) (service.PumpOutcome, error) {
	m.lastMode = mode
	return m.modeOut, m.modeErr
}

func (m *mockPump) CommandPump(ctx context.Context, activate bool) (service.PumpOutcome, error) {
	m.lastCommand = &activate
	return m.commandOut, m.commandErr
}

type mockAlerts struct {
	list      []models.Alert
	listErr   error
	lastQuery service.AlertQuery
	ack       *models.Alert
	ackErr    error
	lastAckID string
}

func (m *mockAlerts) ListAlerts(ctx context.Context, q service.AlertQuery) ([]models.Alert, error) {
	m.lastQuery = q
	return m.list, m.listErr
}

func (m *mockAlerts) AcknowledgeAlert(ctx context.Context, id string) (*models.Alert, error) {
	m.lastAckID = id
	return m.ack, m.ackErr
}

type mockSettings struct {
	thresholds    models.ThresholdSettings
	thresholdsErr error
	notifications models.NotificationSettings
	updateErr     error
	lastUpdate    models.ThresholdSettings
}

func (m *mockSettings) Thresholds(ctx context.Context) (models.ThresholdSettings, error) {
	return m.thresholds, m.thresholdsErr
}

func (m *mockSettings) UpdateThresholds(ctx context.Context, t models.ThresholdSettings) (models.ThresholdSettings, error) {
	m.lastUpdate = t
	if m.updateErr != nil {
		return models.ThresholdSettings{}, m.updateErr
	}
	return t, nil
}

func (m *mockSettings) NotificationSettings(ctx context.Context) (models.NotificationSettings, error) {
	return m.notifications, nil
}

func (m *mockSettings) UpdateNotificationSettings(ctx context.Context, n models.NotificationSettings) (models.NotificationSettings, error) {
	if m.updateErr != nil {
		return models.NotificationSettings{}, m.updateErr
	}
	return n, nil
}

type mockHistory struct {
	readings   []models.Reading
	latest     *models.Reading
	pumpLogs   []models.PumpLog
	err        error
	lastFilter service.HistoryFilter
}

func (m *mockHistory) ListReadings(ctx context.Context, f service.HistoryFilter) ([]models.Reading, error) {
	m.lastFilter = f
	return m.readings, m.err
}

func (m *mockHistory) LatestReading(ctx context.Context) (*models.Reading, error) {
	return m.latest, m.err
}

func (m *mockHistory) ListPumpLogs(ctx context.Context, f service.HistoryFilter) ([]models.PumpLog, error) {
	m.lastFilter = f
	return m.pumpLogs, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request) *http.Request {
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}

var fixedTime = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

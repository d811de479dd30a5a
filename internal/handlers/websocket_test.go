package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"water_monitor/internal/broadcast"
	"water_monitor/internal/models"
	"water_monitor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	u, _ := url.Parse(srv.URL)
	u.Scheme = "ws"
	u.Path = "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	return conn
}

func waitForSubscribers(t *testing.T, hub *broadcast.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, hub.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_SnapshotThenEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := broadcast.NewHub(8, nil)
	s := &service.Service{
		Pump:    &mockPump{state: models.PumpState{Mode: models.PumpModeAuto, IsActive: true}},
		History: &mockHistory{latest: &models.Reading{ID: "r1", Level: 64}},
	}

	r := gin.New()
	h := NewHandler(s, hub, nil)
	r.GET("/ws", h.wsConnect)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if env.Type != snapshotType {
		t.Fatalf("expected snapshot first, got %q", env.Type)
	}
	var snap struct {
		Pump    models.PumpState `json:"pump"`
		Reading models.Reading   `json:"reading"`
	}
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if !snap.Pump.IsActive || snap.Reading.ID != "r1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	waitForSubscribers(t, hub, 1)
	ctx := context.Background()
	hub.Publish(ctx, service.EventWaterLevel, map[string]float64{"level": 66})
	hub.Publish(ctx, service.EventAlert, map[string]string{"type": "warning"})

	for _, want := range []string{service.EventWaterLevel, service.EventAlert} {
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		env = envelope{}
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read %s: %v", want, err)
		}
		if env.Type != want {
			t.Fatalf("got %q, want %q", env.Type, want)
		}
	}

	_ = conn.Close()
	deadline := time.Now().Add(time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscription not released after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocket_DisabledWithoutHub(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(&service.Service{}, nil, nil)
	r.GET("/ws", h.wsConnect)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

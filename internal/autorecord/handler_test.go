package autorecord

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autorec/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

type testStack struct {
	handler *Handler
	bus     *Bus
	player  *PlayerState
	backend *fakeBackend
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	backend := newFakeBackend()
	mirror := NewOutputMirror()
	log := testLogger()
	conn := NewManager(backend, mirror, log, nil)
	cmds := NewFacade(conn, mirror, backend, log, nil, nil)
	player := NewPlayerState()
	orch := NewOrchestrator(OrchestratorDeps{
		Conn:       conn,
		Commands:   cmds,
		Rules:      config.DefaultRules,
		Zone:       func() string { return "" },
		InCutscene: func() bool { return false },
		Log:        log,
	})
	bus := NewBus()
	h := NewHandler(bus, conn, cmds, mirror, player, orch, log, nil, "ws://127.0.0.1:4455", "")
	return &testStack{handler: h, bus: bus, player: player, backend: backend}
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/status", h.Status)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)
	r.Route("/events", func(r chi.Router) {
		r.Post("/combat/enter", h.CombatEnter)
		r.Post("/combat/exit", h.CombatExit)
		r.Post("/countdown", h.Countdown)
		r.Post("/duty/start", h.DutyStart)
		r.Post("/player", h.PlayerUpdate)
	})
	r.Post("/recording/start", h.StartRecording)
	r.Post("/filters", h.SetFilter)
	return r
}

func TestHandler_CombatEnter_publishes_event(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	sub := stack.bus.Subscribe(1)
	defer sub.Close()

	req := httptest.NewRequest(http.MethodPost, "/events/combat/enter", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	select {
	case ev := <-sub.C():
		if ev.Kind() != "combat_entered" {
			t.Errorf("unexpected event: %s", ev.Kind())
		}
	case <-time.After(time.Second):
		t.Fatal("event never reached the bus")
	}
}

func TestHandler_Countdown(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	sub := stack.bus.Subscribe(1)
	defer sub.Close()

	t.Run("valid_body", func(t *testing.T) {
		b, _ := json.Marshal(map[string]any{"value": 12.0})
		req := httptest.NewRequest(http.MethodPost, "/events/countdown", bytes.NewReader(b))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		ev := <-sub.C()
		tick, ok := ev.(CountdownTicked)
		if !ok || tick.Value != 12.0 {
			t.Errorf("unexpected event: %#v", ev)
		}
	})

	t.Run("invalid_body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events/countdown", bytes.NewReader([]byte("not json")))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing_value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events/countdown", bytes.NewReader([]byte("{}")))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandler_DutyStart_requires_territory(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	req := httptest.NewRequest(http.MethodPost, "/events/duty/start", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_PlayerUpdate(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	b, _ := json.Marshal(map[string]any{"online_status_id": 15, "territory_id": 129})
	req := httptest.NewRequest(http.MethodPost, "/events/player", bytes.NewReader(b))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if stack.player.OnlineStatusID() != 15 || stack.player.TerritoryID() != 129 {
		t.Errorf("player state not updated: status=%d territory=%d",
			stack.player.OnlineStatusID(), stack.player.TerritoryID())
	}
}

func TestHandler_Status(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Connection      string `json:"connection"`
		Recording       string `json:"recording"`
		PendingAutoStop bool   `json:"pending_auto_stop"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body.Connection != "disconnected" || body.Recording != "stopped" || body.PendingAutoStop {
		t.Errorf("unexpected status: %+v", body)
	}
}

func TestHandler_StartRecording_disconnected_reports_not_issued(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	req := httptest.NewRequest(http.MethodPost, "/recording/start", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["issued"] {
		t.Error("command must not issue while disconnected")
	}
	if len(stack.backend.calls()) != 0 {
		t.Errorf("no backend command expected: %v", stack.backend.calls())
	}
}

func TestHandler_SetFilter_validates_body(t *testing.T) {
	stack := newTestStack(t)
	r := newTestRouter(stack.handler)

	req := httptest.NewRequest(http.MethodPost, "/filters", bytes.NewReader([]byte(`{"source":"","filter":"Blur"}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

package autorecord

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"autorec/internal/platform/metrics"
)

// Handler exposes the game-event ingest and the control/status endpoints
// over HTTP. The ingest layer holds no orchestration logic: every endpoint
// translates one request into one published event or one facade call.
type Handler struct {
	bus     *Bus
	conn    *Manager
	cmds    *Facade
	mirror  *OutputMirror
	player  *PlayerState
	orch    *Orchestrator
	log     *slog.Logger
	metrics *metrics.Metrics

	address  string
	password string
}

// NewHandler returns a Handler. Metrics may be nil to disable metric
// recording (e.g. in tests).
func NewHandler(bus *Bus, conn *Manager, cmds *Facade, mirror *OutputMirror, player *PlayerState, orch *Orchestrator, log *slog.Logger, m *metrics.Metrics, address, password string) *Handler {
	return &Handler{
		bus:      bus,
		conn:     conn,
		cmds:     cmds,
		mirror:   mirror,
		player:   player,
		orch:     orch,
		log:      log,
		metrics:  m,
		address:  address,
		password: password,
	}
}

// CombatEnter handles POST /events/combat/enter.
func (h *Handler) CombatEnter(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, CombatEntered{})
}

// CombatExit handles POST /events/combat/exit.
func (h *Handler) CombatExit(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, CombatExited{})
}

// Countdown handles POST /events/countdown.
// Body: { "value": 12.0 }.
func (h *Handler) Countdown(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value *float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		h.log.Debug("invalid countdown body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.publish(w, r, CountdownTicked{Value: *body.Value})
}

// DutyStart handles POST /events/duty/start.
// Body: { "territory_id": 129 }.
func (h *Handler) DutyStart(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeTerritory(w, r)
	if !ok {
		return
	}
	h.publish(w, r, DutyStarted{TerritoryID: id})
}

// DutyComplete handles POST /events/duty/complete.
func (h *Handler) DutyComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeTerritory(w, r)
	if !ok {
		return
	}
	h.publish(w, r, DutyCompleted{TerritoryID: id})
}

// DutyWipe handles POST /events/duty/wipe.
func (h *Handler) DutyWipe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.decodeTerritory(w, r)
	if !ok {
		return
	}
	h.publish(w, r, DutyWiped{TerritoryID: id})
}

// PlayerUpdate handles POST /events/player.
// Body: { "online_status_id": 15, "territory_id": 129 }.
func (h *Handler) PlayerUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OnlineStatusID *uint32 `json:"online_status_id"`
		TerritoryID    *uint32 `json:"territory_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OnlineStatusID == nil || body.TerritoryID == nil {
		h.log.Debug("invalid player body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.player.Set(*body.OnlineStatusID, *body.TerritoryID)
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Connection      string `json:"connection"`
		Recording       string `json:"recording"`
		Streaming       string `json:"streaming"`
		ReplayBuffer    string `json:"replay_buffer"`
		PendingAutoStop bool   `json:"pending_auto_stop"`
	}{
		Connection:      h.conn.Status().String(),
		Recording:       h.mirror.Recording().String(),
		Streaming:       h.mirror.Streaming().String(),
		ReplayBuffer:    h.mirror.ReplayBuffer().String(),
		PendingAutoStop: h.orch.PendingAutoStop(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("encode status", slog.String("error", err.Error()))
	}
}

// Connect handles POST /connect using the configured backend endpoint.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if h.conn.Connect(h.address, h.password) {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	// Attempt already in flight, already connected, or bad address.
	h.writeIssued(w, false)
}

// Disconnect handles POST /disconnect.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.conn.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

// StartRecording handles POST /recording/start.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.StartRecording())
}

// StopRecording handles POST /recording/stop.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.StopRecording())
}

// ToggleRecording handles POST /recording/toggle.
func (h *Handler) ToggleRecording(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.ToggleRecording())
}

// StartReplay handles POST /replay/start.
func (h *Handler) StartReplay(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.StartReplayBuffer())
}

// StopReplay handles POST /replay/stop.
func (h *Handler) StopReplay(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.StopReplayBuffer())
}

// SaveReplay handles POST /replay/save.
func (h *Handler) SaveReplay(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.SaveReplayBuffer())
}

// ToggleStreaming handles POST /streaming/toggle.
func (h *Handler) ToggleStreaming(w http.ResponseWriter, r *http.Request) {
	h.writeIssued(w, h.cmds.ToggleStreaming())
}

// SetFilter handles POST /filters.
// Body: { "source": "Game Capture", "filter": "Blur", "enabled": true }.
func (h *Handler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source  string `json:"source"`
		Filter  string `json:"filter"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Source == "" || body.Filter == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.writeIssued(w, h.cmds.SetSourceFilterEnabled(body.Source, body.Filter, body.Enabled))
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, ev Event) {
	if err := h.bus.Publish(r.Context(), ev); err != nil {
		h.log.Warn("event publish failed",
			slog.String("kind", ev.Kind()),
			slog.String("error", err.Error()),
		)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) writeIssued(w http.ResponseWriter, issued bool) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]bool{"issued": issued}); err != nil {
		h.log.Error("encode response", slog.String("error", err.Error()))
	}
}

func (h *Handler) decodeTerritory(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	var body struct {
		TerritoryID *uint32 `json:"territory_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TerritoryID == nil {
		h.log.Debug("invalid duty body")
		w.WriteHeader(http.StatusBadRequest)
		return 0, false
	}
	return *body.TerritoryID, true
}

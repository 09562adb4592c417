package autorecord

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"autorec/internal/platform/metrics"

	"github.com/google/uuid"
)

const (
	connectTimeout = 10 * time.Second
	restoreTimeout = 5 * time.Second
)

// Manager owns the lifecycle of the single backend connection. It
// serializes connect attempts, keeps a lock-free status snapshot, and
// captures the backend's recording location at connect time so it can be
// restored on disconnect.
type Manager struct {
	backend Backend
	mirror  *OutputMirror
	log     *slog.Logger
	metrics *metrics.Metrics

	// gate serializes connect attempts; TryLock makes a concurrent call a
	// no-op instead of a queued duplicate handshake.
	gate   sync.Mutex
	status atomic.Int32

	snapMu      sync.Mutex
	snapshot    RecordingLocation
	hasSnapshot bool
}

// NewManager returns a Manager for the given backend. Metrics may be nil
// to disable metric recording (e.g. in tests).
func NewManager(backend Backend, mirror *OutputMirror, log *slog.Logger, m *metrics.Metrics) *Manager {
	return &Manager{backend: backend, mirror: mirror, log: log, metrics: m}
}

// Status returns the current connection status. The read never blocks;
// callers poll it before every conditional action.
func (m *Manager) Status() ConnectionStatus {
	return ConnectionStatus(m.status.Load())
}

// IsConnected reports whether the backend connection is established.
func (m *Manager) IsConnected() bool {
	return m.Status() == Connected
}

// Connect starts a connection attempt. It returns false without side
// effects when an attempt is already in flight, when already connected, or
// when the address is malformed. The handshake itself runs off the calling
// goroutine; completion is observable through Status.
func (m *Manager) Connect(address, password string) bool {
	if !m.gate.TryLock() {
		return false
	}

	if m.Status() == Connected {
		m.gate.Unlock()
		return false
	}

	if _, err := url.Parse(address); err != nil || address == "" {
		// Argument error: status stays untouched.
		m.log.Error("invalid backend address", slog.String("address", address))
		m.gate.Unlock()
		return false
	}

	attempt := uuid.NewString()
	prev := m.Status()
	m.status.Store(int32(Connecting))
	m.log.Info("connecting to backend",
		slog.String("address", address),
		slog.String("attempt", attempt),
	)
	if m.metrics != nil {
		m.metrics.IncConnectAttempts()
	}

	go m.runConnect(address, password, attempt, prev)
	return true
}

// runConnect performs the handshake and releases the connect gate on every
// exit path. prev is the status before the attempt; argument errors roll
// back to it.
func (m *Manager) runConnect(address, password, attempt string, prev ConnectionStatus) {
	defer m.gate.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	err := m.backend.Connect(ctx, address, password)
	switch {
	case err == nil:
		m.snapshotLocation(ctx)
		m.status.Store(int32(Connected))
		m.log.Info("backend connected", slog.String("attempt", attempt))

	case errors.Is(err, ErrAuthFailed):
		m.status.Store(int32(ConnectFailed))
		if derr := m.backend.Disconnect(); derr != nil {
			m.log.Debug("teardown after auth failure", slog.String("error", derr.Error()))
		}
		m.log.Error("backend authentication failed", slog.String("attempt", attempt))
		if m.metrics != nil {
			m.metrics.IncConnectFailures()
		}

	case errors.Is(err, ErrBadAddress):
		// An argument error is not an attempt outcome: the status rolls
		// back to whatever it was before the attempt.
		m.status.CompareAndSwap(int32(Connecting), int32(prev))
		m.log.Error("backend rejected address",
			slog.String("attempt", attempt),
			slog.String("error", err.Error()),
		)

	default:
		// A late-arriving success must not be overwritten by a stale
		// failure handler: only mark failed while still connecting.
		m.status.CompareAndSwap(int32(Connecting), int32(ConnectFailed))
		m.log.Error("backend connect failed",
			slog.String("attempt", attempt),
			slog.String("error", err.Error()),
		)
		if m.metrics != nil {
			m.metrics.IncConnectFailures()
		}
	}
}

// snapshotLocation captures the backend's current recording location so a
// later disconnect can put it back instead of permanently mutating the
// user's backend configuration.
func (m *Manager) snapshotLocation(ctx context.Context) {
	dir, err := m.backend.RecordingFolder(ctx)
	if err != nil {
		m.log.Warn("snapshot recording folder", slog.String("error", err.Error()))
		return
	}
	pattern, err := m.backend.FilenameFormat(ctx)
	if err != nil {
		m.log.Warn("snapshot filename format", slog.String("error", err.Error()))
		return
	}

	m.snapMu.Lock()
	m.snapshot = RecordingLocation{Directory: dir, FilenamePattern: pattern}
	m.hasSnapshot = true
	m.snapMu.Unlock()
}

// Disconnect restores the connect-time recording location (best effort)
// and closes the backend connection. It is a no-op when not connected.
func (m *Manager) Disconnect() {
	if m.Status() != Connected {
		return
	}

	snap, ok := m.takeSnapshot()
	if ok {
		ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
		if err := m.backend.SetRecordingFolder(ctx, snap.Directory); err != nil {
			m.log.Warn("restore recording folder", slog.String("error", err.Error()))
		}
		if err := m.backend.SetFilenameFormat(ctx, snap.FilenamePattern); err != nil {
			m.log.Warn("restore filename format", slog.String("error", err.Error()))
		}
		cancel()
	}

	if err := m.backend.Disconnect(); err != nil {
		m.log.Warn("backend disconnect", slog.String("error", err.Error()))
	}
	m.status.Store(int32(Disconnected))
	m.mirror.reset()
	m.log.Info("backend disconnected")
}

func (m *Manager) takeSnapshot() (RecordingLocation, bool) {
	m.snapMu.Lock()
	defer m.snapMu.Unlock()
	snap, ok := m.snapshot, m.hasSnapshot
	m.hasSnapshot = false
	return snap, ok
}

// Run pumps backend notifications into the status field and the output
// mirror until ctx is done or the notification channel closes.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-m.backend.Notifications():
			if !ok {
				return
			}
			m.handleNotification(n)
		}
	}
}

func (m *Manager) handleNotification(n Notification) {
	switch n.Kind {
	case NotifyConnected:
		// The connect path owns the Connected transition; the
		// notification is informational.
		m.log.Debug("backend reported connected")
	case NotifyDisconnected:
		if m.status.CompareAndSwap(int32(Connected), int32(Disconnected)) {
			m.log.Warn("backend connection lost")
		}
		// The snapshot cannot be replayed over a dead connection.
		m.snapMu.Lock()
		m.hasSnapshot = false
		m.snapMu.Unlock()
		m.mirror.reset()
	case NotifyStreamStatus:
		if m.metrics != nil {
			m.metrics.ObserveStreamStats(n.Stats.KbitsPerSec, n.Stats.DroppedFrames)
		}
	default:
		m.mirror.apply(n)
	}
}

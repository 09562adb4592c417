package autorecord

import (
	"context"
	"log/slog"
	"time"

	"autorec/internal/platform/metrics"
)

const commandTimeout = 5 * time.Second

// Notifier is the user-facing message channel for command failures
// (e.g. an in-game chat line or a desktop notification).
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Facade issues guarded backend commands. Every operation follows the same
// contract: when not connected, or when the mirrored output state already
// satisfies the request, the call is a silent no-op returning false; a
// backend error is logged and surfaced to the notifier, never propagated.
// The boolean result means "command was issued", not "backend confirmed" —
// confirmation arrives later through the OutputMirror.
type Facade struct {
	conn    *Manager
	mirror  *OutputMirror
	backend Backend
	log     *slog.Logger
	metrics *metrics.Metrics
	notify  Notifier
}

// NewFacade returns a Facade. Metrics and notifier may be nil; failures
// are then only logged.
func NewFacade(conn *Manager, mirror *OutputMirror, backend Backend, log *slog.Logger, m *metrics.Metrics, notify Notifier) *Facade {
	return &Facade{conn: conn, mirror: mirror, backend: backend, log: log, metrics: m, notify: notify}
}

// StartRecording starts the recording output if connected and stopped.
func (f *Facade) StartRecording() bool {
	return f.issue("start_recording", f.mirror.Recording() == OutputStopped, f.backend.StartRecording)
}

// StopRecording stops the recording output if connected and started.
func (f *Facade) StopRecording() bool {
	return f.issue("stop_recording", f.mirror.Recording() == OutputStarted, f.backend.StopRecording)
}

// ToggleRecording toggles the recording output; no state precondition.
func (f *Facade) ToggleRecording() bool {
	return f.issue("toggle_recording", true, f.backend.ToggleRecording)
}

// StartReplayBuffer starts the replay buffer if connected and stopped.
func (f *Facade) StartReplayBuffer() bool {
	return f.issue("start_replay_buffer", f.mirror.ReplayBuffer() == OutputStopped, f.backend.StartReplayBuffer)
}

// StopReplayBuffer stops the replay buffer if connected and started.
func (f *Facade) StopReplayBuffer() bool {
	return f.issue("stop_replay_buffer", f.mirror.ReplayBuffer() == OutputStarted, f.backend.StopReplayBuffer)
}

// SaveReplayBuffer saves the replay buffer if connected and running.
func (f *Facade) SaveReplayBuffer() bool {
	return f.issue("save_replay_buffer", f.mirror.ReplayBuffer() == OutputStarted, f.backend.SaveReplayBuffer)
}

// ToggleStreaming toggles the streaming output; no state precondition.
func (f *Facade) ToggleStreaming() bool {
	return f.issue("toggle_streaming", true, f.backend.ToggleStreaming)
}

// SetRecordingLocation applies non-empty directory/pattern overrides. It
// only acts while the recording output is stopped; backends typically
// reject location changes mid-recording.
func (f *Facade) SetRecordingLocation(loc RecordingLocation) bool {
	if !f.conn.IsConnected() || f.mirror.Recording() != OutputStopped {
		f.noop("set_recording_location")
		return false
	}

	applied := false
	if loc.Directory != "" {
		if f.call("set_recording_folder", func(ctx context.Context) error {
			return f.backend.SetRecordingFolder(ctx, loc.Directory)
		}) {
			applied = true
		}
	}
	if loc.FilenamePattern != "" {
		if f.call("set_filename_format", func(ctx context.Context) error {
			return f.backend.SetFilenameFormat(ctx, loc.FilenamePattern)
		}) {
			applied = true
		}
	}
	return applied
}

// SetSourceFilterEnabled enables or disables a filter on a source.
func (f *Facade) SetSourceFilterEnabled(source, filter string, enabled bool) bool {
	if !f.conn.IsConnected() {
		f.noop("set_source_filter")
		return false
	}
	return f.call("set_source_filter", func(ctx context.Context) error {
		return f.backend.SetSourceFilterEnabled(ctx, source, filter, enabled)
	})
}

// issue applies the shared precondition check, then performs the command.
func (f *Facade) issue(name string, stateOK bool, op func(context.Context) error) bool {
	if !f.conn.IsConnected() || !stateOK {
		f.noop(name)
		return false
	}
	return f.call(name, op)
}

func (f *Facade) call(name string, op func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := op(ctx); err != nil {
		f.log.Error("backend command failed",
			slog.String("command", name),
			slog.String("error", err.Error()),
		)
		if f.notify != nil {
			f.notify.Notify("recorder command failed: " + name)
		}
		if f.metrics != nil {
			f.metrics.IncCommandFailed(name)
		}
		return false
	}

	f.log.Debug("backend command issued", slog.String("command", name))
	if f.metrics != nil {
		f.metrics.IncCommandIssued(name)
	}
	return true
}

func (f *Facade) noop(name string) {
	f.log.Debug("command precondition not met", slog.String("command", name))
	if f.metrics != nil {
		f.metrics.IncCommandNoop(name)
	}
}

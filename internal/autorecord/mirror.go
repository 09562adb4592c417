package autorecord

import "sync/atomic"

// OutputMirror passively tracks the backend-reported state of the three
// output channels. It is written only from backend notifications and is
// eventually consistent with respect to issued commands: a successful
// start command does not guarantee the mirror already reads Started.
type OutputMirror struct {
	recording atomic.Int32
	streaming atomic.Int32
	replay    atomic.Int32
}

// NewOutputMirror returns a mirror with all outputs reported stopped.
func NewOutputMirror() *OutputMirror {
	return &OutputMirror{}
}

// Recording returns the last reported recording state.
func (m *OutputMirror) Recording() OutputState {
	return OutputState(m.recording.Load())
}

// Streaming returns the last reported streaming state.
func (m *OutputMirror) Streaming() OutputState {
	return OutputState(m.streaming.Load())
}

// ReplayBuffer returns the last reported replay buffer state.
func (m *OutputMirror) ReplayBuffer() OutputState {
	return OutputState(m.replay.Load())
}

// apply records a state-change notification. Non-state notifications are
// ignored.
func (m *OutputMirror) apply(n Notification) {
	switch n.Kind {
	case NotifyRecordingState:
		m.recording.Store(int32(n.State))
	case NotifyStreamingState:
		m.streaming.Store(int32(n.State))
	case NotifyReplayState:
		m.replay.Store(int32(n.State))
	}
}

// reset returns all outputs to stopped. Used when the connection drops and
// the last reported states can no longer be trusted.
func (m *OutputMirror) reset() {
	m.recording.Store(int32(OutputStopped))
	m.streaming.Store(int32(OutputStopped))
	m.replay.Store(int32(OutputStopped))
}

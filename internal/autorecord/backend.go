package autorecord

import "context"

// Backend is the remote-control transport for the recording backend.
// Implementations can be a real obs-websocket client or an in-memory fake.
// All command methods are synchronous requests; state confirmation arrives
// later on the Notifications channel.
type Backend interface {
	// Connect establishes and authenticates the connection. It returns
	// ErrAuthFailed on a rejected credential, ErrBadAddress on a malformed
	// address, and a wrapped transport error otherwise.
	Connect(ctx context.Context, address, password string) error
	Disconnect() error

	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) error
	ToggleRecording(ctx context.Context) error

	StartReplayBuffer(ctx context.Context) error
	StopReplayBuffer(ctx context.Context) error
	SaveReplayBuffer(ctx context.Context) error

	ToggleStreaming(ctx context.Context) error

	RecordingFolder(ctx context.Context) (string, error)
	SetRecordingFolder(ctx context.Context, dir string) error
	FilenameFormat(ctx context.Context) (string, error)
	SetFilenameFormat(ctx context.Context, pattern string) error

	SetSourceFilterEnabled(ctx context.Context, source, filter string, enabled bool) error

	// Notifications delivers asynchronous backend events. The channel stays
	// open across reconnects; implementations drop notifications rather
	// than block when the receiver falls behind.
	Notifications() <-chan Notification
}

// NotificationKind discriminates backend notifications.
type NotificationKind int

const (
	NotifyConnected NotificationKind = iota
	NotifyDisconnected
	NotifyRecordingState
	NotifyStreamingState
	NotifyReplayState
	NotifyStreamStatus
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyConnected:
		return "connected"
	case NotifyDisconnected:
		return "disconnected"
	case NotifyRecordingState:
		return "recording_state"
	case NotifyStreamingState:
		return "streaming_state"
	case NotifyReplayState:
		return "replay_state"
	case NotifyStreamStatus:
		return "stream_status"
	default:
		return "unknown"
	}
}

// Notification is one asynchronous event from the backend. State is only
// meaningful for the three *State kinds, Stats only for NotifyStreamStatus.
type Notification struct {
	Kind  NotificationKind
	State OutputState
	Stats StreamStats
}

// StreamStats is a periodic streaming health report from the backend.
type StreamStats struct {
	KbitsPerSec   int     `json:"kbits_per_sec"`
	DroppedFrames int     `json:"dropped_frames"`
	TotalFrames   int     `json:"total_frames"`
	FPS           float64 `json:"fps"`
}

package autorecord

// ConnectionStatus is the lifecycle state of the single backend connection.
// It is owned exclusively by the Manager; everyone else reads it.
type ConnectionStatus int32

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
	ConnectFailed
)

func (s ConnectionStatus) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OutputState is the reported state of one backend output channel
// (recording, streaming, or replay buffer).
type OutputState int32

const (
	OutputStopped OutputState = iota
	OutputStarted
	OutputPaused
)

func (s OutputState) String() string {
	switch s {
	case OutputStopped:
		return "stopped"
	case OutputStarted:
		return "started"
	case OutputPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// RecordingLocation is a directory plus filename-format override for the
// backend's recording output. The zero value means "no override".
type RecordingLocation struct {
	Directory       string `json:"directory"`
	FilenamePattern string `json:"filename_pattern"`
}

// IsEmpty reports whether the location carries no override at all.
func (l RecordingLocation) IsEmpty() bool {
	return l == RecordingLocation{}
}

package autorecord

import (
	"context"
	"sync"
)

// fakeBackend is an in-memory Backend for tests. Connect can be made to
// block on gate to hold the connect window open, and individual commands
// can be made to fail via cmdErr.
type fakeBackend struct {
	mu              sync.Mutex
	connectCalls    int
	disconnectCalls int
	connectErr      error
	gate            chan struct{}

	folder  string
	pattern string

	setFolderCalls  []string
	setPatternCalls []string
	commands        []string
	cmdErr          map[string]error

	notifs chan Notification
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		folder:  "D:/videos",
		pattern: "%CCYY-%MM-%DD",
		cmdErr:  make(map[string]error),
		notifs:  make(chan Notification, 16),
	}
}

func (b *fakeBackend) Connect(ctx context.Context, address, password string) error {
	b.mu.Lock()
	b.connectCalls++
	gate := b.gate
	err := b.connectErr
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (b *fakeBackend) Disconnect() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectCalls++
	return nil
}

func (b *fakeBackend) command(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.cmdErr[name]; err != nil {
		return err
	}
	b.commands = append(b.commands, name)
	return nil
}

func (b *fakeBackend) StartRecording(ctx context.Context) error   { return b.command("start_recording") }
func (b *fakeBackend) StopRecording(ctx context.Context) error    { return b.command("stop_recording") }
func (b *fakeBackend) ToggleRecording(ctx context.Context) error  { return b.command("toggle_recording") }
func (b *fakeBackend) StartReplayBuffer(ctx context.Context) error { return b.command("start_replay") }
func (b *fakeBackend) StopReplayBuffer(ctx context.Context) error  { return b.command("stop_replay") }
func (b *fakeBackend) SaveReplayBuffer(ctx context.Context) error  { return b.command("save_replay") }
func (b *fakeBackend) ToggleStreaming(ctx context.Context) error   { return b.command("toggle_streaming") }

func (b *fakeBackend) RecordingFolder(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.folder, nil
}

func (b *fakeBackend) SetRecordingFolder(ctx context.Context, dir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setFolderCalls = append(b.setFolderCalls, dir)
	b.folder = dir
	return nil
}

func (b *fakeBackend) FilenameFormat(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pattern, nil
}

func (b *fakeBackend) SetFilenameFormat(ctx context.Context, pattern string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setPatternCalls = append(b.setPatternCalls, pattern)
	b.pattern = pattern
	return nil
}

func (b *fakeBackend) SetSourceFilterEnabled(ctx context.Context, source, filter string, enabled bool) error {
	return b.command("set_filter:" + source + "/" + filter)
}

func (b *fakeBackend) Notifications() <-chan Notification {
	return b.notifs
}

func (b *fakeBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.commands...)
}

func (b *fakeBackend) connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectCalls
}

func (b *fakeBackend) disconnects() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnectCalls
}

func (b *fakeBackend) folderHistory() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.setFolderCalls...)
}

func (b *fakeBackend) patternHistory() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.setPatternCalls...)
}

var _ Backend = (*fakeBackend)(nil)

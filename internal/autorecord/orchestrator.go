package autorecord

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"autorec/internal/platform/config"
	"autorec/internal/platform/metrics"
)

// Commands is the slice of the Facade the orchestrator drives.
type Commands interface {
	StartRecording() bool
	StopRecording() bool
	StartReplayBuffer() bool
	StopReplayBuffer() bool
	SaveReplayBuffer() bool
	SetRecordingLocation(loc RecordingLocation) bool
}

// Connector is the slice of the Manager the orchestrator drives.
type Connector interface {
	IsConnected() bool
	Connect(address, password string) bool
}

// OrchestratorDeps wires an Orchestrator. Zone returns the current zone
// name or "" when unknown; InCutscene reports whether the player is in the
// configured cutscene online status. Rules is read once per event so hot
// reloads apply immediately.
type OrchestratorDeps struct {
	Conn       Connector
	Commands   Commands
	Rules      func() config.Rules
	Zone       func() string
	InCutscene func() bool
	Clock      Clock
	Log        *slog.Logger
	Metrics    *metrics.Metrics

	// Backend endpoint used for lazy connect attempts.
	Address  string
	Password string
}

// Orchestrator is the auto-record state machine. It reacts to combat,
// countdown, and duty events and drives the command facade. A single mutex
// serializes event handling; the delayed-stop countdown is the only
// concurrent part and owns exactly one pending slot.
type Orchestrator struct {
	deps OrchestratorDeps

	mu            sync.Mutex
	lastCountdown float64
	pending       *autoStopTask
}

// NewOrchestrator returns an Orchestrator. Deps.Clock defaults to the
// system clock, Deps.Log to slog.Default.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Orchestrator{
		deps: deps,
		// The first countdown tick has no previous value to compare
		// against and must not read as an increase.
		lastCountdown: math.Inf(1),
	}
}

// Run drains events until ctx is done or the channel closes, then cancels
// any pending delayed stop.
func (o *Orchestrator) Run(ctx context.Context, events <-chan Event) {
	defer o.cancelPending()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			o.HandleEvent(ev)
		}
	}
}

// HandleEvent processes one event. Safe for concurrent callers; handlers
// for shared state are serialized internally.
func (o *Orchestrator) HandleEvent(ev Event) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.IncEvent(ev.Kind())
	}

	switch e := ev.(type) {
	case CombatEntered:
		o.handleCombatEntered()
	case CombatExited:
		o.handleCombatExited()
	case CountdownTicked:
		o.handleCountdown(e.Value)
	case DutyStarted:
		o.handleDutyStarted()
	case DutyCompleted:
		o.handleDutyCompleted()
	case DutyWiped:
		o.handleDutyWiped()
	default:
		o.deps.Log.Warn("unhandled event", slog.String("kind", ev.Kind()))
	}
}

// PendingAutoStop reports whether a delayed stop is counting down.
func (o *Orchestrator) PendingAutoStop() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != nil
}

func (o *Orchestrator) handleCombatEntered() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ensureConnected() {
		return
	}

	rules := o.deps.Rules()
	if !rules.StartRecordOnCombat {
		return
	}

	if o.pending != nil && rules.CancelStopOnResume {
		// Resuming combat inside the grace period means the recording
		// never should have stopped; cancel and issue no start.
		o.pending.cancel()
		o.pending = nil
		if o.deps.Metrics != nil {
			o.deps.Metrics.IncAutoStopsCancelled()
		}
		o.deps.Log.Info("combat resumed, delayed stop cancelled")
		return
	}

	o.startRecording()
}

func (o *Orchestrator) handleCombatExited() {
	o.mu.Lock()
	defer o.mu.Unlock()

	rules := o.deps.Rules()
	if !rules.StopRecordOnCombat {
		return
	}
	if o.pending != nil {
		// Never two concurrent delayed-stop sequences.
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	task := &autoStopTask{ctx: ctx, cancelFn: cancel}
	o.pending = task
	if o.deps.Metrics != nil {
		o.deps.Metrics.IncAutoStopsStarted()
	}
	o.deps.Log.Info("combat ended, delayed stop armed",
		slog.Int("delay_seconds", rules.StopRecordDelaySeconds),
	)

	go o.runAutoStop(task, rules.StopRecordDelaySeconds)
}

func (o *Orchestrator) handleCountdown(value float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Edge detection must stay correct across reconnects, so the last
	// value is updated on every path out of this handler.
	defer func() { o.lastCountdown = value }()

	if !o.ensureConnected() {
		return
	}

	// A value increase means a fresh countdown started; countdowns
	// otherwise tick monotonically toward zero.
	if value > o.lastCountdown && o.deps.Rules().StartRecordOnCountdown {
		o.deps.Log.Info("new countdown detected", slog.Float64("value", value))
		o.startRecording()
	}
}

func (o *Orchestrator) handleDutyStarted() {
	if o.deps.Rules().StartReplayOnDutyStart {
		o.deps.Commands.StartReplayBuffer()
	}
}

func (o *Orchestrator) handleDutyCompleted() {
	if o.deps.Rules().StopReplayOnDutyComplete {
		o.deps.Commands.StopReplayBuffer()
	}
}

func (o *Orchestrator) handleDutyWiped() {
	// Stopping the buffer lets a fresh one cover the retry.
	if o.deps.Rules().StopReplayOnWipe {
		o.deps.Commands.StopReplayBuffer()
	}
}

// ensureConnected triggers a best-effort connect attempt when needed. The
// attempt completes asynchronously; a false return aborts the current
// event and the next triggering event retries naturally.
func (o *Orchestrator) ensureConnected() bool {
	if o.deps.Conn.IsConnected() {
		return true
	}
	o.deps.Conn.Connect(o.deps.Address, o.deps.Password)
	return o.deps.Conn.IsConnected()
}

// startRecording applies the freshly computed location override and issues
// a start. Caller holds o.mu.
func (o *Orchestrator) startRecording() {
	if loc := o.computeLocation(); !loc.IsEmpty() {
		o.deps.Commands.SetRecordingLocation(loc)
	}
	o.deps.Commands.StartRecording()
}

func (o *Orchestrator) computeLocation() RecordingLocation {
	rules := o.deps.Rules()
	base := RecordingLocation{
		Directory:       rules.RecordDirectory,
		FilenamePattern: rules.FilenamePattern,
	}
	return ComputeLocation(base, o.deps.Zone(), rules.IncludeTerritory, rules.ZoneAsSuffix)
}

// autoStopTask is one delayed-stop sequence. The cancellation context is
// fresh per instance and discarded with it.
type autoStopTask struct {
	ctx      context.Context
	cancelFn context.CancelFunc
}

func (t *autoStopTask) cancel() { t.cancelFn() }

// runAutoStop counts down one second at a time, re-arming indefinitely
// while the cutscene hold applies, then stops the recording and saves the
// replay buffer. The pending slot is cleared on every exit path.
func (o *Orchestrator) runAutoStop(task *autoStopTask, delaySeconds int) {
	defer o.clearPending(task)

	remaining := delaySeconds
	for {
		if remaining <= 0 {
			rules := o.deps.Rules()
			if !rules.DontStopInCutscene || !o.deps.InCutscene() {
				break
			}
		}

		select {
		case <-task.ctx.Done():
			return
		case <-o.deps.Clock.After(time.Second):
		}

		if remaining > 0 {
			remaining--
		}
	}

	// Cancellation can land while the hold predicate runs, after the
	// timer select already passed. A cancelled sequence must leave no
	// side effects.
	if task.ctx.Err() != nil {
		return
	}

	// Natural completion: refresh the location for whatever the backend
	// writes next, stop, then save the replay buffer best-effort.
	if loc := o.computeLocation(); !loc.IsEmpty() {
		o.deps.Commands.SetRecordingLocation(loc)
	}
	o.deps.Commands.StopRecording()
	o.deps.Commands.SaveReplayBuffer()

	if o.deps.Metrics != nil {
		o.deps.Metrics.IncAutoStopsCompleted()
	}
	o.deps.Log.Info("delayed stop completed")
}

// clearPending releases the single pending slot if task still owns it, and
// releases the task's context resources. Cancelling an already-completed
// task this way is a safe no-op.
func (o *Orchestrator) clearPending(task *autoStopTask) {
	o.mu.Lock()
	if o.pending == task {
		o.pending = nil
	}
	o.mu.Unlock()
	task.cancelFn()
}

func (o *Orchestrator) cancelPending() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pending != nil {
		o.pending.cancel()
		o.pending = nil
	}
}

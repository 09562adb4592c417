package autorecord

import (
	"context"
	"fmt"
	"sync"
)

// Event is one game-state transition delivered to the orchestrator.
type Event interface {
	// Kind names the event for logs and metrics.
	Kind() string
}

// CombatEntered signals the player entered combat (edge-triggered).
type CombatEntered struct{}

// CombatExited signals the player left combat (edge-triggered).
type CombatExited struct{}

// CountdownTicked carries the current countdown value. Values decrease
// toward zero during an active countdown; an increase over the previous
// value means a fresh countdown started.
type CountdownTicked struct {
	Value float64
}

// DutyStarted signals entry into an instanced duty.
type DutyStarted struct {
	TerritoryID uint32
}

// DutyCompleted signals successful completion of a duty.
type DutyCompleted struct {
	TerritoryID uint32
}

// DutyWiped signals a party wipe inside a duty.
type DutyWiped struct {
	TerritoryID uint32
}

func (CombatEntered) Kind() string   { return "combat_entered" }
func (CombatExited) Kind() string    { return "combat_exited" }
func (CountdownTicked) Kind() string { return "countdown_ticked" }
func (DutyStarted) Kind() string     { return "duty_started" }
func (DutyCompleted) Kind() string   { return "duty_completed" }
func (DutyWiped) Kind() string       { return "duty_wiped" }

// Bus is an in-memory pub/sub for game events. Delivery is in-process and
// in publish order per subscriber while the publish context remains active.
type Bus struct {
	mu   sync.RWMutex
	subs []chan Event
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Publish delivers ev to every subscriber, blocking per subscriber until
// the event is accepted or ctx is done.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	chs := append([]chan Event(nil), b.subs...)
	b.mu.RUnlock()

	for _, ch := range chs {
		select {
		case ch <- ev:
		case <-ctx.Done():
			return fmt.Errorf("publish %s: %w", ev.Kind(), ctx.Err())
		}
	}
	return nil
}

// Subscribe registers a new subscriber with the given channel buffer.
func (b *Bus) Subscribe(buf int) *Subscription {
	ch := make(chan Event, buf)

	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()

	return &Subscription{bus: b, ch: ch}
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	bus *Bus
	ch  chan Event
}

// C returns the receive channel. It is closed by Close.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Close removes the subscription from the bus and closes its channel.
func (s *Subscription) Close() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	lst := s.bus.subs
	out := lst[:0]
	for _, c := range lst {
		if c != s.ch {
			out = append(out, c)
		}
	}
	s.bus.subs = out
	close(s.ch)
	return nil
}

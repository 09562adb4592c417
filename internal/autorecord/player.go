package autorecord

import "sync/atomic"

// PlayerState mirrors the last reported player context from the game-side
// signal source: the territory the player is in and their online status.
// The orchestrator's zone and cutscene predicates are built on top of it.
type PlayerState struct {
	territoryID    atomic.Uint32
	onlineStatusID atomic.Uint32
}

// NewPlayerState returns an empty player state (no territory, no status).
func NewPlayerState() *PlayerState {
	return &PlayerState{}
}

// Set updates both fields from one player report.
func (p *PlayerState) Set(onlineStatusID, territoryID uint32) {
	p.onlineStatusID.Store(onlineStatusID)
	p.territoryID.Store(territoryID)
}

// TerritoryID returns the last reported territory, 0 when unknown.
func (p *PlayerState) TerritoryID() uint32 {
	return p.territoryID.Load()
}

// OnlineStatusID returns the last reported online status, 0 when unknown.
func (p *PlayerState) OnlineStatusID() uint32 {
	return p.onlineStatusID.Load()
}

package models

import "time"

// Slot is one registration slot's persistent per-occupant state.
// SlotID is the slot's fixed index into the engine's slot table.
type Slot struct {
	SlotID    int
	Active    bool
	TrackerID uint64

	BBox     BBox
	PrevBBox BBox

	StableHeight float64
	StableTop    float64

	SittingHeight float64

	LyingState LyingState
	LyingStart time.Time
	LyingStable time.Time
	LyingTop   float64

	StandingSince time.Time
	SittingSince  time.Time

	LastSeen   time.Time
	LastUpdate time.Time

	FrameCount int

	Posture     Posture
	WasStanding bool
}

// Reset clears a slot back to its inactive zero value, freeing it for reuse.
func (s *Slot) Reset() {
	slotID := s.SlotID
	*s = Slot{SlotID: slotID}
}

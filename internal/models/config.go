package models

import "time"

// EngineConfig holds every hysteresis and timing constant the Occupant
// State Engine consults. All fields are settable at startup (via env
// vars, see internal/common/config) rather than hard-coded, per
// the guidance that these thresholds must stay configurable.
type EngineConfig struct {
	AutoRegister bool
	MaxSlots     int

	LyingRatioEnter   float64
	LyingRatioInitial float64

	SittingRatioMin float64
	SittingRatioMax float64

	StandConfirm time.Duration
	SitConfirm   time.Duration
	LyingStable  time.Duration

	FallHeightDropA float64
	FallTopDeltaA   float64
	FallHeightDropB float64
	FallTopDeltaB   float64
	FallWindow      time.Duration
	FallWarmupFrame int

	BedFallDropPx float64

	FrameOutAlert     time.Duration
	TrackLostTimeout  time.Duration
	AlertDebounce     time.Duration

	EMAAlphaStand float64
	EMAAlphaSit   float64

	MinStableHeightPx float64
}

// DefaultEngineConfig returns the constants named in the spec's Config
// table, unchanged — these are defaults, never hard-coded assumptions
// baked into the engine logic itself.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AutoRegister:      true,
		MaxSlots:          4,
		LyingRatioEnter:   1.2,
		LyingRatioInitial: 1.8,
		SittingRatioMin:   0.55,
		SittingRatioMax:   0.85,
		StandConfirm:      3 * time.Second,
		SitConfirm:        2 * time.Second,
		LyingStable:       3 * time.Second,
		FallHeightDropA:   0.7,
		FallTopDeltaA:     0.30,
		FallHeightDropB:   0.5,
		FallTopDeltaB:     0.15,
		FallWindow:        2000 * time.Millisecond,
		FallWarmupFrame:   10,
		BedFallDropPx:     150,
		FrameOutAlert:     10 * time.Second,
		TrackLostTimeout:  60 * time.Second,
		AlertDebounce:     30 * time.Second,
		EMAAlphaStand:     0.2,
		EMAAlphaSit:       0.3,
		MinStableHeightPx: 100,
	}
}

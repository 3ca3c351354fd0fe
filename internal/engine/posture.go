package engine

import (
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

// classifyPosture runs spec §4.3 for one slot against its matched
// detection for the current frame. It mutates the slot's standing/
// sitting hysteresis fields and confirmed Posture, and returns whether
// this frame is lying-candidate so the caller can drive the lying
// sub-machine (§4.5).
func classifyPosture(slot *models.Slot, det models.Detection, now time.Time, cfg models.EngineConfig) (lyingCandidate bool) {
	ratio := det.BBox.Ratio()
	lyingCandidate = ratio >= cfg.LyingRatioEnter

	sittingCandidate := !lyingCandidate &&
		slot.StableHeight > cfg.MinStableHeightPx &&
		withinRatio(det.BBox.Height/slot.StableHeight, cfg.SittingRatioMin, cfg.SittingRatioMax)

	if !lyingCandidate && !sittingCandidate {
		if now.Sub(slot.StandingSince) >= cfg.StandConfirm {
			slot.Posture = models.PostureStanding
			slot.WasStanding = true
			slot.StableHeight = ema(slot.StableHeight, det.BBox.Height, cfg.EMAAlphaStand)
			slot.StableTop = ema(slot.StableTop, det.BBox.Top, cfg.EMAAlphaStand)
		}
	} else {
		slot.StandingSince = now
	}

	if sittingCandidate {
		if now.Sub(slot.SittingSince) >= cfg.SitConfirm {
			slot.Posture = models.PostureSitting
			slot.SittingHeight = ema(slot.SittingHeight, det.BBox.Height, cfg.EMAAlphaSit)
		}
	} else {
		slot.SittingSince = now
		if !lyingCandidate && slot.Posture == models.PostureSitting {
			slot.Posture = models.PostureUnknown
		}
	}

	return lyingCandidate
}

func withinRatio(v, min, max float64) bool {
	return v >= min && v <= max
}

func ema(current, sample, alpha float64) float64 {
	return (1-alpha)*current + alpha*sample
}

package engine

import (
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

// checkFall runs spec §4.4 against the bbox the slot held going into this
// frame (prior) versus the newly matched detection. It appends a Fall
// alert through the log when either threshold path fires; debouncing in
// the log prevents repeat alerts across consecutive frames.
func checkFall(slot *models.Slot, det models.Detection, prior models.BBox, now time.Time, cfg models.EngineConfig, log *AlertLog) {
	if slot.FrameCount < cfg.FallWarmupFrame {
		return
	}
	if !slot.WasStanding {
		return
	}
	if prior.Height <= cfg.MinStableHeightPx {
		return
	}

	deltaT := now.Sub(slot.LastUpdate)
	if deltaT <= 0 || deltaT > cfg.FallWindow {
		return
	}

	heightRatio := det.BBox.Height / prior.Height
	topDelta := det.BBox.Top - prior.Top

	pathA := heightRatio < cfg.FallHeightDropA && topDelta > cfg.FallTopDeltaA*prior.Height
	pathB := heightRatio < cfg.FallHeightDropB && topDelta > cfg.FallTopDeltaB*prior.Height

	if pathA || pathB {
		log.Append(slot.SlotID, models.AlertFall, "fall detected", now, cfg.AlertDebounce)
	}
}

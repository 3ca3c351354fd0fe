package engine

import (
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

// updateLying drives the lying sub-machine and bed-fall detector of
// spec §4.5 for one slot given this frame's lying-candidate verdict from
// the posture classifier.
func updateLying(slot *models.Slot, det models.Detection, lyingCandidate bool, now time.Time, cfg models.EngineConfig, log *AlertLog) {
	if !lyingCandidate {
		if slot.LyingState != models.NotLying {
			slot.LyingState = models.NotLying
			log.AutoAcknowledgeFor(slot.SlotID)
		}
		return
	}

	slot.Posture = models.PostureLying

	switch slot.LyingState {
	case models.NotLying:
		slot.LyingState = models.LyingCandidate
		slot.LyingStart = now
		slot.LyingTop = det.BBox.Top

	case models.LyingCandidate:
		if now.Sub(slot.LyingStart) >= cfg.LyingStable {
			slot.LyingState = models.LyingStable
			slot.LyingTop = det.BBox.Top
			slot.LyingStable = now
		}

	case models.LyingStable:
		topDelta := det.BBox.Top - slot.LyingTop
		if topDelta > cfg.BedFallDropPx {
			log.Append(slot.SlotID, models.AlertBedFall, "bed fall detected", now, cfg.AlertDebounce)
			slot.LyingTop = det.BBox.Top
			slot.LyingStable = now
		}
	}
}

package engine

import (
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

// checkAbsence runs spec §4.6 for one active slot that had no matching
// detection this frame. It may emit FrameOut and/or deactivate the slot.
func checkAbsence(slot *models.Slot, now time.Time, cfg models.EngineConfig, log *AlertLog) {
	absent := now.Sub(slot.LastSeen)

	if absent >= cfg.FrameOutAlert && absent < cfg.FrameOutAlert+time.Second {
		log.Append(slot.SlotID, models.AlertFrameOut, "occupant absent", now, cfg.AlertDebounce)
	}

	if absent >= cfg.TrackLostTimeout {
		slot.Active = false
		slot.TrackerID = 0
	}
}

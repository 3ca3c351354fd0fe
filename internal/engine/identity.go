package engine

import (
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
)

// bindIdentities runs spec §4.2 for one ingested frame: existing active
// slots are matched by tracker_id first, then (if auto-register is on)
// remaining detections are bound to the lowest-indexed free slot. It
// returns, for each detection index in the frame, the slot index it was
// bound to this frame, or -1 if unbound.
func (e *Engine) bindIdentities(detections []models.Detection, now time.Time) (bound []int, freshlyRegistered map[int]bool) {
	bound = make([]int, len(detections))
	for i := range bound {
		bound[i] = -1
	}
	freshlyRegistered = make(map[int]bool)

	for i, det := range detections {
		if det.TrackerID == 0 {
			continue
		}
		for s := range e.slots {
			slot := &e.slots[s]
			if slot.Active && slot.TrackerID == det.TrackerID {
				bound[i] = s
				break
			}
		}
	}

	if !e.cfg.AutoRegister {
		return bound, freshlyRegistered
	}

	for i, det := range detections {
		if bound[i] != -1 || det.TrackerID == 0 {
			continue
		}
		freeIdx := e.firstFreeSlot()
		if freeIdx == -1 {
			continue
		}
		e.autoRegister(freeIdx, det, now)
		bound[i] = freeIdx
		freshlyRegistered[freeIdx] = true
	}

	return bound, freshlyRegistered
}

// firstFreeSlot returns the lowest-indexed inactive slot, or -1 if the
// table is full.
func (e *Engine) firstFreeSlot() int {
	for i := range e.slots {
		if !e.slots[i].Active {
			return i
		}
	}
	return -1
}

// autoRegister seeds a newly bound slot from the first detection carrying
// its tracker_id, per spec §4.2 item 2.
func (e *Engine) autoRegister(slotIdx int, det models.Detection, now time.Time) {
	slot := &e.slots[slotIdx]
	slot.Reset()
	slot.Active = true
	slot.TrackerID = det.TrackerID
	slot.FrameCount = 0
	slot.BBox = det.BBox
	slot.PrevBBox = det.BBox
	slot.StableTop = det.BBox.Top
	slot.StableHeight = det.BBox.Height
	slot.LastSeen = now
	slot.LastUpdate = now
	slot.StandingSince = now
	slot.SittingSince = now

	isLyingInitial := det.BBox.Ratio() >= e.cfg.LyingRatioInitial
	if isLyingInitial {
		slot.Posture = models.PostureLying
		slot.LyingState = models.LyingCandidate
		slot.LyingStart = now
		slot.LyingTop = det.BBox.Top
	} else {
		slot.Posture = models.PostureUnknown
		slot.LyingState = models.NotLying
	}
	slot.WasStanding = !isLyingInitial
}

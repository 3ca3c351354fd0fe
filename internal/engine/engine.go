// Package engine implements the Occupant State Engine: slot table,
// identity binding, posture classification, fall and bed-fall detection,
// absence handling, and the alert log, coordinated behind one exclusive
// lock per the concurrency model in spec §5.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
	"go.uber.org/zap"
)

// DetectionView is one entry of list_detections()'s result: the raw
// detection joined to its bound slot, if any.
type DetectionView struct {
	Detection models.Detection
	SlotID    *int
}

// Engine is the facade of §4.1. All exported methods except AlertLog
// acquire mu for their duration; none suspend while holding it beyond bounded in-memory
// work, matching the scheduling model of §5.
type Engine struct {
	mu     sync.Mutex
	slots  []models.Slot
	alerts *AlertLog
	cfg    models.EngineConfig
	clock  Clock
	logger *zap.Logger

	lastFrame []models.Detection
	lastBound []int // slot index bound per lastFrame entry, or -1
}

// New constructs an Engine with MaxSlots inactive slots and an empty
// alert log. logger may be nil in tests.
func New(cfg models.EngineConfig, clock Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	slots := make([]models.Slot, cfg.MaxSlots)
	for i := range slots {
		slots[i].SlotID = i
	}
	return &Engine{
		slots:  slots,
		alerts: NewAlertLog(),
		cfg:    cfg,
		clock:  clock,
		logger: logger,
	}
}

// AlertLog exposes the engine's alert log so the service layer can wire
// sinks before traffic starts. Only safe to call before Ingest runs
// concurrently with it.
func (e *Engine) AlertLog() *AlertLog {
	return e.alerts
}

// Ingest applies one frame of detections: identity binding, then
// per-active-slot posture/fall/lying/absence updates, per spec §4.1(a-c).
func (e *Engine) Ingest(frame models.DetectionFrame, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selfHealInvariants()

	bound, freshlyRegistered := e.bindIdentities(frame.Detections, now)

	for i, det := range frame.Detections {
		slotIdx := bound[i]
		if slotIdx == -1 {
			continue
		}
		if freshlyRegistered[slotIdx] {
			continue
		}
		e.updateBoundSlot(&e.slots[slotIdx], det, now)
	}

	matched := make(map[int]bool, len(bound))
	for _, idx := range bound {
		if idx != -1 {
			matched[idx] = true
		}
	}
	for i := range e.slots {
		slot := &e.slots[i]
		if slot.Active && !matched[i] {
			checkAbsence(slot, now, e.cfg, e.alerts)
		}
	}

	e.lastFrame = append(e.lastFrame[:0], frame.Detections...)
	e.lastBound = append(e.lastBound[:0], bound...)
}

// updateBoundSlot runs the full per-frame pipeline (fall check, posture
// classification, lying sub-machine) for a slot that already existed
// before this frame, then shifts its bbox history.
func (e *Engine) updateBoundSlot(slot *models.Slot, det models.Detection, now time.Time) {
	prior := slot.BBox

	checkFall(slot, det, prior, now, e.cfg, e.alerts)
	lyingCandidate := classifyPosture(slot, det, now, e.cfg)
	updateLying(slot, det, lyingCandidate, now, e.cfg, e.alerts)

	slot.PrevBBox = prior
	slot.BBox = det.BBox
	slot.TrackerID = det.TrackerID
	slot.LastSeen = now
	slot.LastUpdate = now
	slot.FrameCount++
}

// selfHealInvariants guards against the one invariant violation the spec
// names explicitly: a slot marked active with tracker_id 0 can never
// arise from normal binding, but if it did, deactivate it rather than
// let 0 (a reserved sentinel) participate in matching.
func (e *Engine) selfHealInvariants() {
	for i := range e.slots {
		if e.slots[i].Active && e.slots[i].TrackerID == 0 {
			e.logger.Error("slot active with reserved tracker_id 0, deactivating", zap.Int("slot_id", i))
			e.slots[i].Reset()
		}
	}
}

// ListDetections returns a by-value snapshot of the last ingested frame,
// each detection joined to its bound slot if any.
func (e *Engine) ListDetections() []DetectionView {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]DetectionView, len(e.lastFrame))
	for i, det := range e.lastFrame {
		out[i].Detection = det
		if i < len(e.lastBound) && e.lastBound[i] != -1 {
			slotID := e.lastBound[i]
			out[i].SlotID = &slotID
		}
	}
	return out
}

// ListAlerts returns a by-value snapshot of the alert log.
func (e *Engine) ListAlerts() []models.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.Snapshot()
}

// Register manually binds tracker_id to the lowest-indexed free slot.
// Fails if the tracker is already bound, no slot is free, or no
// detection in the most recently ingested frame carries that tracker_id.
func (e *Engine) Register(trackerID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.slots {
		if e.slots[i].Active && e.slots[i].TrackerID == trackerID {
			return fmt.Errorf("tracker %d already bound to slot %d", trackerID, i)
		}
	}

	var det *models.Detection
	for i := range e.lastFrame {
		if e.lastFrame[i].TrackerID == trackerID {
			det = &e.lastFrame[i]
			break
		}
	}
	if det == nil {
		return fmt.Errorf("tracker %d not present in last frame", trackerID)
	}

	freeIdx := e.firstFreeSlot()
	if freeIdx == -1 {
		return fmt.Errorf("no free slot")
	}

	e.autoRegister(freeIdx, *det, e.clock.Now())
	return nil
}

// UnregisterByTracker deactivates the slot currently bound to trackerID,
// if any. Returns false if no such slot exists.
func (e *Engine) UnregisterByTracker(trackerID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.slots {
		if e.slots[i].Active && e.slots[i].TrackerID == trackerID {
			e.slots[i].Reset()
			return true
		}
	}
	return false
}

// UnregisterSlot deactivates slotID directly. Returns false if out of
// range or already inactive.
func (e *Engine) UnregisterSlot(slotID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if slotID < 0 || slotID >= len(e.slots) || !e.slots[slotID].Active {
		return false
	}
	e.slots[slotID].Reset()
	return true
}

// ClearAll deactivates every slot without touching the alert log.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.slots {
		e.slots[i].Reset()
	}
}

// AcknowledgeAlert marks the alert at index acknowledged. Idempotent;
// returns false for an out-of-range index.
func (e *Engine) AcknowledgeAlert(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alerts.Acknowledge(index)
}

// ClearAlerts empties the alert log.
func (e *Engine) ClearAlerts() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts.Clear()
}

// SetAutoRegister toggles whether ingest auto-binds unmatched detections.
func (e *Engine) SetAutoRegister(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.AutoRegister = enabled
}

// AutoRegister reports the current auto-register flag.
func (e *Engine) AutoRegister() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.AutoRegister
}

// ToggleAutoRegister flips the flag and returns its new value.
func (e *Engine) ToggleAutoRegister() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.AutoRegister = !e.cfg.AutoRegister
	return e.cfg.AutoRegister
}

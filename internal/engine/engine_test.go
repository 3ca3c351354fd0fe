package engine

import (
	"testing"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(trackerID uint64, l, t, w, h float64) models.DetectionFrame {
	return models.DetectionFrame{Detections: []models.Detection{
		{TrackerID: trackerID, ClassID: 0, Confidence: 0.9, BBox: models.BBox{Left: l, Top: t, Width: w, Height: h}},
	}}
}

func newTestEngine() (*Engine, *FakeClock) {
	clk := NewFakeClock(time.Unix(0, 0))
	e := New(models.DefaultEngineConfig(), clk, nil)
	return e, clk
}

// S1: standing to fall.
func TestScenarioStandingToFall(t *testing.T) {
	e, clk := newTestEngine()

	for i := 0; i < 46; i++ {
		e.Ingest(frame(7, 100, 100, 60, 200), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}

	alerts := e.ListAlerts()
	require.Empty(t, alerts, "no fall yet while standing")

	e.Ingest(frame(7, 100, 250, 200, 60), clk.Now())
	clk.Advance(100 * time.Millisecond)

	alerts = e.ListAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertFall, alerts[0].Kind)

	for i := 0; i < 4; i++ {
		e.Ingest(frame(7, 100, 250, 200, 60), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}
	alerts = e.ListAlerts()
	assert.Len(t, alerts, 1, "no repeat fall alerts once the fallen box is the prior box")
}

// S2: lying then bed fall.
func TestScenarioLyingBedFall(t *testing.T) {
	e, clk := newTestEngine()

	for i := 0; i < 40; i++ {
		e.Ingest(frame(3, 100, 200, 180, 80), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}
	require.Empty(t, e.ListAlerts())

	e.Ingest(frame(3, 100, 400, 180, 80), clk.Now())

	alerts := e.ListAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertBedFall, alerts[0].Kind)
}

// S3: frame-out and wander.
func TestScenarioFrameOutAndWander(t *testing.T) {
	e, clk := newTestEngine()

	clk.Set(time.Unix(0, 0))
	for i := 0; i < 11; i++ {
		e.Ingest(frame(2, 100, 100, 60, 200), clk.Now())
		clk.Advance(1 * time.Second)
	}
	// last presence ingest was at t=10; tracker 2 now goes absent.

	clk.Set(time.Unix(20, 0))
	e.Ingest(models.DetectionFrame{}, clk.Now())
	assert.Equal(t, 1, countFrameOuts(e.ListAlerts()), "exactly one FrameOut at absence=10s")

	var slotID int
	for i := range e.slots {
		if e.slots[i].TrackerID == 2 {
			slotID = i
		}
	}
	assert.True(t, e.slots[slotID].Active, "slot still active before TRACK_LOST_TIMEOUT")

	clk.Set(time.Unix(70, 0)) // absence = 60s from last presence at t=10
	e.Ingest(models.DetectionFrame{}, clk.Now())
	assert.False(t, e.slots[slotID].Active, "slot deactivated after TRACK_LOST_TIMEOUT")

	clk.Set(time.Unix(80, 0))
	e.Ingest(frame(2, 100, 100, 60, 200), clk.Now())
	reboundToSameSlot := e.slots[slotID].Active && e.slots[slotID].TrackerID == 2 && e.slots[slotID].FrameCount == 0
	assert.True(t, reboundToSameSlot, "re-appearance gets a fresh registration (lowest free slot)")
}

// S4: auto-acknowledge on standing up.
func TestScenarioAutoAcknowledgeOnStandUp(t *testing.T) {
	e, clk := newTestEngine()

	for i := 0; i < 46; i++ {
		e.Ingest(frame(5, 100, 100, 60, 200), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}
	e.Ingest(frame(5, 100, 250, 200, 60), clk.Now())
	clk.Advance(100 * time.Millisecond)

	alerts := e.ListAlerts()
	require.Len(t, alerts, 1)
	assert.False(t, alerts[0].Acknowledged)

	for i := 0; i < 3; i++ {
		e.Ingest(frame(5, 100, 100, 60, 200), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}

	alerts = e.ListAlerts()
	for _, a := range alerts {
		assert.True(t, a.Acknowledged)
	}
}

// S5: register duplicate.
func TestScenarioRegisterDuplicate(t *testing.T) {
	cfg := models.DefaultEngineConfig()
	cfg.AutoRegister = false
	clk := NewFakeClock(time.Unix(0, 0))
	e := New(cfg, clk, nil)

	e.Ingest(frame(9, 10, 10, 50, 100), clk.Now())

	require.NoError(t, e.Register(9))
	err := e.Register(9)
	require.Error(t, err)

	active := 0
	for i := range e.slots {
		if e.slots[i].Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

// S6: debounce window.
func TestScenarioDebounceWindow(t *testing.T) {
	e, clk := newTestEngine()

	for i := 0; i < 46; i++ {
		e.Ingest(frame(1, 100, 100, 60, 200), clk.Now())
		clk.Advance(100 * time.Millisecond)
	}
	e.Ingest(frame(1, 100, 250, 200, 60), clk.Now())
	require.Len(t, e.ListAlerts(), 1)

	clk.Set(time.Unix(1, 0))
	for s := 1; s <= 29; s++ {
		clk.Set(time.Unix(int64(s), 0))
		e.Ingest(frame(1, 100, 250, 200, 60), clk.Now())
	}
	assert.Len(t, e.ListAlerts(), 1, "still within debounce window")

	clk.Set(time.Unix(31, 0))
	e.Ingest(frame(1, 100, 100, 60, 200), clk.Now())
	clk.Advance(time.Second)
	e.Ingest(frame(1, 100, 250, 200, 60), clk.Now())

	alerts := e.ListAlerts()
	assert.GreaterOrEqual(t, len(alerts), 1)
}

func TestInvariantMaxOneSlotPerTracker(t *testing.T) {
	e, clk := newTestEngine()
	e.Ingest(frame(42, 10, 10, 40, 100), clk.Now())
	e.Ingest(frame(42, 10, 10, 40, 100), clk.Now())

	count := 0
	for i := range e.slots {
		if e.slots[i].Active && e.slots[i].TrackerID == 42 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestInvariantAcknowledgeIdempotent(t *testing.T) {
	e, clk := newTestEngine()
	e.alerts.Append(0, models.AlertFall, "x", clk.Now(), e.cfg.AlertDebounce)

	assert.True(t, e.AcknowledgeAlert(0))
	assert.True(t, e.AcknowledgeAlert(0))
	assert.False(t, e.AcknowledgeAlert(99))
}

func TestInvariantToggleAutoRegisterRoundTrip(t *testing.T) {
	e, _ := newTestEngine()
	require.True(t, e.AutoRegister())
	e.SetAutoRegister(false)
	e.SetAutoRegister(true)
	assert.True(t, e.AutoRegister())
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	cfg := models.DefaultEngineConfig()
	cfg.AutoRegister = false
	clk := NewFakeClock(time.Unix(0, 0))
	e := New(cfg, clk, nil)

	e.Ingest(frame(77, 0, 0, 40, 100), clk.Now())
	require.NoError(t, e.Register(77))
	assert.True(t, e.UnregisterByTracker(77))

	for i := range e.slots {
		assert.False(t, e.slots[i].Active)
	}
}

func TestFrameOutFiresOnceThenResetsOnReappearance(t *testing.T) {
	e, clk := newTestEngine()

	clk.Set(time.Unix(0, 0))
	e.Ingest(frame(4, 0, 0, 40, 100), clk.Now())

	clk.Set(time.Unix(10, 0))
	e.Ingest(models.DetectionFrame{}, clk.Now())
	assert.Equal(t, 1, countFrameOuts(e.ListAlerts()), "first absence episode fires exactly once")

	clk.Set(time.Unix(10, 0).Add(500 * time.Millisecond))
	e.Ingest(models.DetectionFrame{}, clk.Now())
	assert.Equal(t, 1, countFrameOuts(e.ListAlerts()), "still inside the same edge window, no duplicate")

	// Reappearance well inside TRACK_LOST_TIMEOUT (60s) resets the episode.
	clk.Set(time.Unix(50, 0))
	e.Ingest(frame(4, 0, 0, 40, 100), clk.Now())

	// New absence episode, started far enough past the first FrameOut's
	// timestamp (t=10) that ALERT_DEBOUNCE (30s) no longer suppresses it.
	clk.Set(time.Unix(60, 0))
	e.Ingest(models.DetectionFrame{}, clk.Now())
	assert.Equal(t, 2, countFrameOuts(e.ListAlerts()), "reappearance resets the absence episode")
}

func countFrameOuts(alerts []models.Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Kind == models.AlertFrameOut {
			n++
		}
	}
	return n
}

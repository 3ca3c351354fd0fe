package models

// BBox is a pixel-space bounding box, top-left origin, Y increasing downward.
type BBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Ratio returns width/height. Callers must guard against Height == 0.
func (b BBox) Ratio() float64 {
	return b.Width / b.Height
}

// Detection is one upstream tracker's bounding box for a single frame.
// TrackerID 0 is reserved and never bound to a slot.
type Detection struct {
	TrackerID  uint64  `json:"tracker_id"`
	ClassID    int32   `json:"class_id"`
	Confidence float32 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// DetectionFrame is the per-frame payload handed to Engine.Ingest.
type DetectionFrame struct {
	Detections []Detection `json:"detections"`
}

// Package api exposes the Engine Facade over HTTP, grounded on the
// Krimson receiver's HTTPHandler shape (RegisterRoutes over a
// gorilla/mux router, respondJSON/respondError helpers), and adds a
// websocket upgrade endpoint for the alert hub.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/numa1979/edge-room-monitor/internal/engine"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	engine *engine.Engine
	hub    *Hub
	logger *zap.Logger
}

func NewHandler(eng *engine.Engine, hub *Hub, logger *zap.Logger) *Handler {
	return &Handler{engine: eng, hub: hub, logger: logger}
}

// RegisterRoutes wires every route of the HTTP surface onto router.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/detections", h.ListDetections).Methods("GET")
	api.HandleFunc("/alerts", h.ListAlerts).Methods("GET")
	api.HandleFunc("/config", h.GetConfig).Methods("GET")
	api.HandleFunc("/register", h.Register).Methods("POST")
	api.HandleFunc("/unregister", h.Unregister).Methods("POST")
	api.HandleFunc("/clear", h.Clear).Methods("POST")
	api.HandleFunc("/acknowledge_alert", h.AcknowledgeAlert).Methods("POST")
	api.HandleFunc("/clear_alerts", h.ClearAlerts).Methods("POST")
	api.HandleFunc("/toggle_auto_register", h.ToggleAutoRegister).Methods("POST")
	api.HandleFunc("/ws", h.hub.HandleWebSocket).Methods("GET")
}

type bboxWire struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type detectionWire struct {
	NVTrackerID uint64   `json:"nvtracker_id"`
	FixedID     *int     `json:"fixed_id"`
	Registered  bool     `json:"registered"`
	ClassID     int32    `json:"class_id"`
	Confidence  float32  `json:"confidence"`
	BBox        bboxWire `json:"bbox"`
}

// ListDetections implements GET /api/detections.
func (h *Handler) ListDetections(w http.ResponseWriter, r *http.Request) {
	views := h.engine.ListDetections()
	wire := make([]detectionWire, len(views))
	for i, v := range views {
		wire[i] = detectionWire{
			NVTrackerID: v.Detection.TrackerID,
			FixedID:     v.SlotID,
			Registered:  v.SlotID != nil,
			ClassID:     v.Detection.ClassID,
			Confidence:  v.Detection.Confidence,
			BBox: bboxWire{
				Left:   v.Detection.BBox.Left,
				Top:    v.Detection.BBox.Top,
				Width:  v.Detection.BBox.Width,
				Height: v.Detection.BBox.Height,
			},
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"detections": wire})
}

type alertWire struct {
	Index        int    `json:"index"`
	FixedID      int    `json:"fixed_id"`
	Type         int    `json:"type"`
	Message      string `json:"message"`
	Timestamp    int64  `json:"timestamp"`
	Acknowledged bool   `json:"acknowledged"`
}

// ListAlerts implements GET /api/alerts.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.engine.ListAlerts()
	wire := make([]alertWire, len(alerts))
	for i, a := range alerts {
		wire[i] = alertWire{
			Index:        i,
			FixedID:      a.SlotID,
			Type:         int(a.Kind),
			Message:      a.Message,
			Timestamp:    a.Timestamp.UnixMilli(),
			Acknowledged: a.Acknowledged,
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": wire})
}

// GetConfig implements GET /api/config.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"auto_register": h.engine.AutoRegister()})
}

type trackerRequest struct {
	NVTrackerID uint64 `json:"nvtracker_id"`
}

// Register implements POST /api/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req trackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := "registered"
	if err := h.engine.Register(req.NVTrackerID); err != nil {
		h.logger.Warn("register failed", zap.Uint64("nvtracker_id", req.NVTrackerID), zap.Error(err))
		status = "failed"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": status, "nvtracker_id": req.NVTrackerID})
}

// Unregister implements POST /api/unregister.
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req trackerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := "unregistered"
	if !h.engine.UnregisterByTracker(req.NVTrackerID) {
		status = "failed"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": status, "nvtracker_id": req.NVTrackerID})
}

// Clear implements POST /api/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAll()
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "cleared"})
}

type acknowledgeRequest struct {
	Index int `json:"index"`
}

// AcknowledgeAlert implements POST /api/acknowledge_alert.
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := "acknowledged"
	if !h.engine.AcknowledgeAlert(req.Index) {
		status = "failed"
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": status, "index": req.Index})
}

// ClearAlerts implements POST /api/clear_alerts.
func (h *Handler) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearAlerts()
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "alerts_cleared"})
}

// ToggleAutoRegister implements POST /api/toggle_auto_register.
func (h *Handler) ToggleAutoRegister(w http.ResponseWriter, r *http.Request) {
	enabled := h.engine.ToggleAutoRegister()
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "toggled", "auto_register": enabled})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{"error": message, "status": status})
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/numa1979/edge-room-monitor/internal/engine"
	"github.com/numa1979/edge-room-monitor/internal/models"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler() *Handler {
	cfg := models.DefaultEngineConfig()
	eng := engine.New(cfg, engine.NewFakeClock(time.Unix(1700000000, 0)), zap.NewNop())
	hub := NewHub(zap.NewNop())
	return NewHandler(eng, hub, zap.NewNop())
}

func newRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	return router
}

func TestGetConfigDefaultsAutoRegisterTrue(t *testing.T) {
	h := newTestHandler()
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["auto_register"])
}

func TestToggleAutoRegister(t *testing.T) {
	h := newTestHandler()
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle_auto_register", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "toggled", body["status"])
	require.Equal(t, false, body["auto_register"])
}

func TestRegisterFailsWithoutDetection(t *testing.T) {
	h := newTestHandler()
	router := newRouter(h)

	payload, _ := json.Marshal(trackerRequest{NVTrackerID: 7})
	req := httptest.NewRequest(http.MethodPost, "/api/register", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "failed", body["status"])
}

func TestAcknowledgeAlertOutOfRangeFails(t *testing.T) {
	h := newTestHandler()
	router := newRouter(h)

	payload, _ := json.Marshal(acknowledgeRequest{Index: 99})
	req := httptest.NewRequest(http.MethodPost, "/api/acknowledge_alert", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "failed", body["status"])
}

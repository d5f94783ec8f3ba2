package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/savegress/vitalink/internal/alerts"
	"github.com/savegress/vitalink/internal/ble"
	"github.com/savegress/vitalink/internal/session"
	"github.com/savegress/vitalink/pkg/models"
)

// Health check
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "vitalink",
		"connected": s.session.IsConnected(),
		"time":      time.Now().UTC(),
	})
}

// Device handlers

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	info := s.session.DeviceInfo()
	if info == nil {
		respondError(w, http.StatusNotFound, "No device connected")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) connectDevice(w http.ResponseWriter, r *http.Request) {
	var opts session.ConnectOptions
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result := s.session.Connect(r.Context(), opts)
	status := http.StatusOK
	if !result.OK {
		status = statusForCategory(result.Category)
	}
	respondJSON(w, status, result)
}

func (s *Server) disconnectDevice(w http.ResponseWriter, r *http.Request) {
	s.session.Disconnect()
	respondJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// statusForCategory maps a connect failure category to an HTTP status
func statusForCategory(category ble.ErrorCategory) int {
	switch category {
	case ble.CategoryNotFound:
		return http.StatusNotFound
	case ble.CategoryPermission, ble.CategoryInsecureContext:
		return http.StatusForbidden
	case ble.CategoryUnavailable:
		return http.StatusConflict
	case ble.CategoryUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusBadGateway
	}
}

// Detection handlers

func (s *Server) getActiveDetections(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.session.ActiveKinds())
}

func (s *Server) startDetection(w http.ResponseWriter, r *http.Request) {
	kind := models.DetectionKind(chi.URLParam(r, "kind"))

	if _, err := s.session.StartDetect(kind); err != nil {
		respondError(w, statusForSessionError(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "started",
		"kind":   kind,
	})
}

func (s *Server) stopDetection(w http.ResponseWriter, r *http.Request) {
	kind := models.DetectionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown detection kind")
		return
	}

	s.session.StopDetect(kind)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "stopped",
		"kind":   kind,
	})
}

func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, ble.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.Is(err, ble.ErrCharacteristicNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// manualEntry is the request body for manual value submission after
// the device produced no usable data
type manualEntry struct {
	Value     float64 `json:"value"`
	Systolic  int     `json:"systolic"`
	Diastolic int     `json:"diastolic"`
	HeartRate int     `json:"heart_rate"`
}

func (s *Server) submitManual(w http.ResponseWriter, r *http.Request) {
	kind := models.DetectionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown detection kind")
		return
	}

	var entry manualEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if kind == models.KindPressure {
		reading := s.session.SubmitManualPressure(entry.Systolic, entry.Diastolic, entry.HeartRate)
		respondJSON(w, http.StatusOK, reading)
		return
	}

	reading, err := s.session.SubmitManual(kind, entry.Value)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

// Reading handlers

func (s *Server) listReadingKinds(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Kinds())
}

func (s *Server) getReadingHistory(w http.ResponseWriter, r *http.Request) {
	kind := models.DetectionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown detection kind")
		return
	}
	respondJSON(w, http.StatusOK, s.store.History(kind))
}

func (s *Server) getLatestReading(w http.ResponseWriter, r *http.Request) {
	kind := models.DetectionKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "Unknown detection kind")
		return
	}

	reading, ok := s.store.Latest(kind)
	if !ok {
		respondError(w, http.StatusNotFound, "No readings recorded for this kind")
		return
	}
	respondJSON(w, http.StatusOK, reading)
}

// Alert handlers

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	filter := alerts.Filter{
		Kind:     models.DetectionKind(r.URL.Query().Get("kind")),
		Severity: models.AlertSeverity(r.URL.Query().Get("severity")),
	}
	if ack := r.URL.Query().Get("acknowledged"); ack != "" {
		value := ack == "true"
		filter.Acknowledged = &value
	}

	list := s.alerts.List(filter)
	if list == nil {
		list = []*models.VitalAlert{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) getAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	alert, ok := s.alerts.Get(id)
	if !ok {
		respondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (s *Server) acknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.alerts.Acknowledge(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

// Stats handler

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connected": s.session.IsConnected(),
		"active":    s.session.ActiveKinds(),
		"readings":  s.store.Stats(),
		"alerts":    s.alerts.Stats(),
		"stream":    s.hub.Stats(),
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

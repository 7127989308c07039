package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/thumbscroll/internal/capture"
	"github.com/ayusman/thumbscroll/internal/emitter"
	"github.com/ayusman/thumbscroll/internal/gesture"
)

// Status is a snapshot of the running pipeline.
type Status struct {
	Label           gesture.Label      `json:"label"`
	Enabled         bool               `json:"enabled"`
	Scrolling       bool               `json:"scrolling"`
	LastTimestampMs int64              `json:"last_timestamp_ms"`
	Hands           int                `json:"hands"`
	Frames          uint64             `json:"frames"`
	SkippedFrames   uint64             `json:"skipped_frames"`
	Relay           capture.RelayStats `json:"relay"`
	Emitter         *emitter.Stats     `json:"emitter,omitempty"`
}

// Controller exposes the pipeline to the API.
type Controller interface {
	Status() Status
	Enabled() bool
	SetEnabled(enabled bool) error
}

// StatusHandler serves GET /api/status.
type StatusHandler struct {
	ctrl Controller
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(ctrl Controller) *StatusHandler {
	return &StatusHandler{ctrl: ctrl}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

type enabledResponse struct {
	Enabled bool `json:"enabled"`
}

// EnabledHandler serves GET and PUT /api/enabled.
type EnabledHandler struct {
	ctrl Controller
}

// NewEnabledHandler creates an EnabledHandler.
func NewEnabledHandler(ctrl Controller) *EnabledHandler {
	return &EnabledHandler{ctrl: ctrl}
}

func (h *EnabledHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, enabledResponse{Enabled: h.ctrl.Enabled()})
	case http.MethodPut:
		var req enabledRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.ctrl.SetEnabled(*req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update enabled")
			return
		}
		writeJSON(w, http.StatusOK, enabledResponse{Enabled: h.ctrl.Enabled()})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

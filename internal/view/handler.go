package view

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/clinicboard/clinicboard/pkg/logging"
)

// Handler exposes the engine's views over HTTP. Read endpoints never return
// engine errors; write endpoints do.
type Handler struct {
	engine *Engine
	logger *logging.Logger
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *Engine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger.Component("http")}
}

// Routes mounts the view endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/patients/{patientID}/view", h.GetPatientView)
	r.Post("/appointments/{appointmentID}/notified", h.PostAppointmentNotified)
	r.Post("/costs/{costID}/payment", h.PostPayment)
}

// GetDashboard returns the clinic-wide aggregate view.
// GET /dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Dashboard(r.Context()))
}

// GetPatientView returns the reconciled record set for one patient.
// GET /patients/{patientID}/view
func (h *Handler) GetPatientView(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		http.Error(w, `{"error": "patient id required"}`, http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, h.engine.Patient(r.Context(), patientID))
}

// PostAppointmentNotified marks the appointment's reminder as sent.
// POST /appointments/{appointmentID}/notified
func (h *Handler) PostAppointmentNotified(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	if appointmentID == "" {
		http.Error(w, `{"error": "appointment id required"}`, http.StatusBadRequest)
		return
	}
	if err := h.engine.MarkAppointmentNotified(r.Context(), appointmentID); err != nil {
		h.logger.Warn("mark notified failed", "appointment_id", appointmentID, "error", err)
		h.writeWriteError(w, err, `{"error": "failed to mark appointment notified"}`)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type paymentRequest struct {
	Method string `json:"method"`
	Status string `json:"status"`
}

// PostPayment updates payment method and status on a cost record.
// POST /costs/{costID}/payment
func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	costID := chi.URLParam(r, "costID")
	if costID == "" {
		http.Error(w, `{"error": "cost id required"}`, http.StatusBadRequest)
		return
	}
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		http.Error(w, `{"error": "status required"}`, http.StatusBadRequest)
		return
	}
	if err := h.engine.UpdatePayment(r.Context(), costID, req.Method, req.Status); err != nil {
		h.logger.Warn("payment update failed", "cost_id", costID, "error", err)
		h.writeWriteError(w, err, `{"error": "failed to update payment"}`)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeWriteError separates locally rejected writes (missing capability,
// logout in progress) from genuine backend failures.
func (h *Handler) writeWriteError(w http.ResponseWriter, err error, gatewayMsg string) {
	if errors.Is(err, ErrForbidden) {
		http.Error(w, `{"error": "operation not permitted"}`, http.StatusForbidden)
		return
	}
	http.Error(w, gatewayMsg, http.StatusBadGateway)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "error", err)
	}
}

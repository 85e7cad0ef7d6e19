package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL, Token: "secret-token", ActorID: "dr-1"})
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestListAppointments_NormalizesVariants(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appointments", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "dr-1", r.URL.Query().Get("actor"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		// One record per field-name dialect the backend has shipped.
		w.Write([]byte(`[
			{"id": "a1", "patientId": "p1", "scheduledAt": "2026-03-01T10:00:00Z", "status": "Scheduled", "notificationSent": true},
			{"id": 2, "patient_id": "p2", "date": "2026-03-02 09:30:00", "status": "completed", "isSentNotify": 1},
			{"id": "a3", "patient": {"id": "p3"}, "scheduledAt": 1772355600000, "status": "canceled"}
		]`))
	})

	appts, err := c.ListAppointments(context.Background(), AppointmentsAll)
	require.NoError(t, err)
	require.Len(t, appts, 3)

	assert.Equal(t, clinic.Appointment{
		ID:               "a1",
		PatientID:        "p1",
		ScheduledAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:           clinic.AppointmentScheduled,
		NotificationSent: true,
	}, appts[0])

	assert.Equal(t, "2", appts[1].ID, "numeric ids become strings")
	assert.Equal(t, "p2", appts[1].PatientID)
	assert.Equal(t, clinic.AppointmentDone, appts[1].Status)
	assert.True(t, appts[1].NotificationSent, "0/1 flag coerces to bool")
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), appts[1].ScheduledAt)

	assert.Equal(t, "p3", appts[2].PatientID, "nested patient object is the fallback")
	assert.Equal(t, clinic.AppointmentCancelled, appts[2].Status)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC).Unix(), appts[2].ScheduledAt.Unix())
}

func TestListAppointments_ScheduledFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "scheduled", r.URL.Query().Get("status"))
		w.Write([]byte(`{"data": []}`))
	})
	appts, err := c.ListAppointments(context.Background(), AppointmentsScheduled)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestListExaminations_DataEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [
			{"id": "e1", "appointment": {"id": "a1"}, "totalCost": "150000"},
			{"id": "e2", "appointment_id": "a2"}
		]}`))
	})

	exams, err := c.ListExaminations(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "a1", exams[0].AppointmentID)
	assert.Equal(t, int64(150000), exams[0].TotalCost, "string-encoded amounts parse")
	assert.Equal(t, "a2", exams[1].AppointmentID)
}

func TestGetExaminationByAppointment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appointments/a1/examination", r.URL.Path)
		w.Write([]byte(`{"id": "e1", "services": [{"name": "scaling", "quantity": 2, "unitPrice": 100000}]}`))
	})

	exam, err := c.GetExaminationByAppointment(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "e1", exam.ID)
	assert.Equal(t, "a1", exam.AppointmentID, "appointment id backfilled when the payload omits it")
	require.Len(t, exam.Services, 1)
	assert.Equal(t, clinic.ServiceLineItem{Name: "scaling", Quantity: 2, UnitPrice: 100000}, exam.Services[0])
}

func TestListPhasesByPlan(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/treatment-plans/t1/phases", r.URL.Path)
		w.Write([]byte(`[
			{"id": "ph1", "phase": 1, "status": "in_progress", "cost": 400},
			{"id": "ph2", "phase": 2, "status": "InProgress"}
		]`))
	})

	phases, err := c.ListPhasesByPlan(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, phases, 2)
	assert.Equal(t, "t1", phases[0].PlanID, "plan id backfilled from the path")
	assert.Equal(t, 1, phases[0].PhaseNumber)
	assert.Equal(t, clinic.PlanInprogress, phases[0].Status)
	assert.Equal(t, clinic.PlanInprogress, phases[1].Status, "every backend casing maps to the canonical status")
}

func TestGetCostRecord(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/costs/e1", r.URL.Path)
		w.Write([]byte(`{"amount": 275000, "status": "PAID", "method": "card"}`))
	})

	cost, err := c.GetCostRecord(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "e1", cost.ID, "id backfilled from the request")
	assert.Equal(t, int64(275000), cost.TotalCost)
	assert.True(t, cost.Status.Paid())
}

func TestStatusCodeTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"not found", http.StatusNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := c.ListExaminations(context.Background())
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}

	t.Run("server error is unavailable, not expected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := c.ListExaminations(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.False(t, IsExpected(err))
	})

	t.Run("client error carries the response snippet", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad filter", http.StatusUnprocessableEntity)
		})
		_, err := c.ListExaminations(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 422")
		assert.Contains(t, err.Error(), "bad filter")
	})
}

func TestMarkAppointmentNotified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/appointments/a1/notified", r.URL.Path)
		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body["notificationSent"])
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.MarkAppointmentNotified(context.Background(), "a1"))
}

func TestUpdatePayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/costs/e1/payment", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"method": "cash", "status": "paid"}, body)
		w.Write([]byte(`{"ok": true}`))
	})
	require.NoError(t, c.UpdatePayment(context.Background(), "e1", "cash", "paid"))
}

func TestListDoctors_RoleDefaulting(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/staff/doctors", r.URL.Path)
		w.Write([]byte(`[
			{"id": "d1", "fullName": "Dr. Rahma"},
			{"id": "d2", "name": "Dr. Sari", "role": "surgeon"}
		]`))
	})

	docs, err := c.ListDoctors(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, clinic.Staff{ID: "d1", Name: "Dr. Rahma", Role: "doctor"}, docs[0])
	assert.Equal(t, "surgeon", docs[1].Role, "an explicit role wins over the endpoint default")
}

package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

func rollupSnapshot() *clinic.Snapshot {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &clinic.Snapshot{
		Appointments: []clinic.Appointment{
			{ID: "a1", PatientID: "p1", Status: clinic.AppointmentDone, ScheduledAt: now.Add(-48 * time.Hour)},
			{ID: "a2", PatientID: "p1", Status: clinic.AppointmentScheduled, ScheduledAt: now.Add(24 * time.Hour)},
			{ID: "a3", PatientID: "p1", Status: clinic.AppointmentScheduled, ScheduledAt: now.Add(72 * time.Hour)},
			{ID: "a4", PatientID: "p2", Status: clinic.AppointmentCancelled, ScheduledAt: now.Add(24 * time.Hour)},
		},
		Examinations: []clinic.Examination{
			{ID: "e1", PatientID: "p1", TotalCost: 100, CreatedAt: now.Add(-72 * time.Hour)},
			{ID: "e2", AppointmentID: "a1", TotalCost: 200, CreatedAt: now.Add(-24 * time.Hour)},
			{ID: "e3", PatientID: "p2", TotalCost: 300, CreatedAt: now.Add(-24 * time.Hour)},
			{ID: "orphan", TotalCost: 999, CreatedAt: now},
		},
		Plans: []clinic.TreatmentPlan{
			{ID: "t1", PatientID: "p1", Status: clinic.PlanInprogress, TotalCost: 1000},
			{ID: "t2", PatientID: "p2", Status: clinic.PlanDone, TotalCost: 500},
		},
		Phases: map[string][]clinic.TreatmentPhase{
			"t1": {{ID: "ph1", PlanID: "t1", Cost: 400}},
		},
	}
}

func TestPatientRollup(t *testing.T) {
	snap := rollupSnapshot()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	out := PatientRollup(snap, now)
	require.Len(t, out, 2, "orphan examination must not create a patient row")

	p1 := out["p1"]
	assert.Equal(t, 2, p1.ExaminationCount, "e2 attributed through appointment a1")
	assert.Equal(t, 1, p1.PlanCount)
	assert.Equal(t, 1, p1.ActivePlanCount)
	// e1 + e2 + plan t1 via its phase: 100 + 200 + 400
	assert.Equal(t, int64(700), p1.TotalCost)
	require.NotNil(t, p1.LatestExamination)
	assert.Equal(t, "e2", p1.LatestExamination.ID)
	require.NotNil(t, p1.NextAppointment)
	assert.Equal(t, "a2", p1.NextAppointment.ID, "earliest future scheduled appointment wins")

	p2 := out["p2"]
	assert.Equal(t, 1, p2.ExaminationCount)
	assert.Equal(t, 0, p2.ActivePlanCount)
	// e3 + plan t2 stored total (no phases): 300 + 500
	assert.Equal(t, int64(800), p2.TotalCost)
	assert.Nil(t, p2.NextAppointment, "cancelled appointments are never next")
}

func TestPatientRollup_Idempotent(t *testing.T) {
	snap := rollupSnapshot()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first := PatientRollup(snap, now)
	second := PatientRollup(snap, now)
	assert.Equal(t, first, second, "recomputing from the same snapshot must be identical")
}

func TestPatientRollup_PastScheduledNotNext(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	snap := &clinic.Snapshot{
		Appointments: []clinic.Appointment{
			{ID: "a1", PatientID: "p1", Status: clinic.AppointmentScheduled, ScheduledAt: now.Add(-time.Hour)},
		},
		Examinations: []clinic.Examination{
			{ID: "e1", PatientID: "p1"},
		},
	}
	out := PatientRollup(snap, now)
	assert.Nil(t, out["p1"].NextAppointment, "a scheduled appointment in the past is not upcoming")
}

func TestPatientRollup_NilSnapshot(t *testing.T) {
	assert.Empty(t, PatientRollup(nil, time.Now()))
}

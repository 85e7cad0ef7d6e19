package aggregate

import (
	"time"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

// PatientStats is the per-patient rollup the dashboard renders one row from.
type PatientStats struct {
	PatientID        string
	ExaminationCount int
	PlanCount        int
	ActivePlanCount  int
	TotalCost        int64

	// LatestExamination is the most recent examination by creation time.
	LatestExamination *clinic.Examination
	// NextAppointment is the earliest still-scheduled future appointment.
	NextAppointment *clinic.Appointment
}

// PatientRollup folds the whole snapshot into per-patient statistics. The
// fold is associative and order-independent: records are attributed by
// resolved patient id only, so fetch-completion order cannot change the
// result. Examinations that cannot be attributed to any patient are skipped
// here; the linker's fallback chain is for patient detail views, not
// clinic-wide totals.
func PatientRollup(snap *clinic.Snapshot, now time.Time) map[string]PatientStats {
	out := make(map[string]PatientStats)
	if snap == nil {
		return out
	}

	get := func(patientID string) PatientStats {
		if s, ok := out[patientID]; ok {
			return s
		}
		return PatientStats{PatientID: patientID}
	}

	for i := range snap.Examinations {
		exam := snap.Examinations[i]
		patientID := exam.PatientID
		if patientID == "" && exam.AppointmentID != "" {
			if appt, ok := snap.AppointmentByID(exam.AppointmentID); ok {
				patientID = appt.PatientID
			}
		}
		if patientID == "" {
			continue
		}
		s := get(patientID)
		s.ExaminationCount++
		s.TotalCost += ExaminationCost(exam)
		if s.LatestExamination == nil || exam.CreatedAt.After(s.LatestExamination.CreatedAt) {
			e := exam
			s.LatestExamination = &e
		}
		out[patientID] = s
	}

	for _, plan := range snap.Plans {
		if plan.PatientID == "" {
			continue
		}
		s := get(plan.PatientID)
		s.PlanCount++
		if plan.Status == clinic.PlanInprogress {
			s.ActivePlanCount++
		}
		s.TotalCost += PlanCost(plan, snap.PlanPhases(plan.ID))
		out[plan.PatientID] = s
	}

	for i := range snap.Appointments {
		appt := snap.Appointments[i]
		if appt.PatientID == "" || appt.Status != clinic.AppointmentScheduled {
			continue
		}
		if !appt.ScheduledAt.After(now) {
			continue
		}
		s := get(appt.PatientID)
		if s.NextAppointment == nil || appt.ScheduledAt.Before(s.NextAppointment.ScheduledAt) {
			a := appt
			s.NextAppointment = &a
		}
		out[appt.PatientID] = s
	}

	return out
}

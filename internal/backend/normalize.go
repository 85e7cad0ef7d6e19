package backend

import (
	"strings"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

// Normalization maps every backend field-name variant into the canonical
// clinic types. First non-empty variant wins; nested references are the last
// resort so an explicit foreign key always beats a summary object.

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

func refID(r *rawRef) flexID {
	if r == nil {
		return ""
	}
	return r.ID
}

func normalizeAppointmentStatus(s string) clinic.AppointmentStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scheduled", "pending", "confirmed":
		return clinic.AppointmentScheduled
	case "done", "completed", "finished":
		return clinic.AppointmentDone
	case "cancelled", "canceled":
		return clinic.AppointmentCancelled
	}
	return clinic.AppointmentStatus(strings.TrimSpace(s))
}

func normalizePlanStatus(s string) clinic.PlanStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inprogress", "in_progress", "in-progress", "active":
		return clinic.PlanInprogress
	case "done", "completed":
		return clinic.PlanDone
	case "paused", "onhold", "on_hold":
		return clinic.PlanPaused
	case "cancelled", "canceled":
		return clinic.PlanCancelled
	}
	return clinic.PlanStatus(strings.TrimSpace(s))
}

func normalizeCostStatus(s string) clinic.CostStatus {
	return clinic.CostStatus(strings.ToLower(strings.TrimSpace(s)))
}

func num(n ...interface{ Int64() (int64, error) }) int64 {
	for _, v := range n {
		if i, err := v.Int64(); err == nil && i != 0 {
			return i
		}
	}
	return 0
}

func normalizeLineItems(items []rawLineItem) []clinic.ServiceLineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]clinic.ServiceLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, clinic.ServiceLineItem{
			Name:      it.Name,
			Quantity:  num(it.Quantity),
			UnitPrice: num(it.UnitPrice, it.Price),
			Cost:      num(it.Cost),
		})
	}
	return out
}

func normalizePrescriptionItems(items []rawLineItem) []clinic.PrescriptionLineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]clinic.PrescriptionLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, clinic.PrescriptionLineItem{
			Name:      it.Name,
			Quantity:  num(it.Quantity),
			UnitPrice: num(it.UnitPrice, it.Price),
			Cost:      num(it.Cost),
		})
	}
	return out
}

func normalizeAppointment(r rawAppointment) clinic.Appointment {
	scheduled := r.ScheduledAt.Time()
	if scheduled.IsZero() {
		scheduled = r.Date.Time()
	}
	return clinic.Appointment{
		ID:               string(r.ID),
		PatientID:        firstID(r.PatientID, r.PatientIDSnake, refID(r.Patient)),
		DoctorID:         firstID(r.DoctorID, refID(r.Doctor)),
		ScheduledAt:      scheduled,
		Status:           normalizeAppointmentStatus(r.Status),
		NotificationSent: bool(r.NotificationSent) || bool(r.IsSentNotify),
	}
}

func normalizeExamination(r rawExamination) clinic.Examination {
	return clinic.Examination{
		ID:            string(r.ID),
		AppointmentID: firstID(r.AppointmentID, r.AppointmentIDSnake, refID(r.Appointment)),
		PatientID:     firstID(r.PatientID, r.PatientIDSnake, refID(r.Patient)),
		Diagnosis:     r.Diagnosis,
		Treatment:     r.Treatment,
		Services:      normalizeLineItems(r.Services),
		Prescriptions: normalizePrescriptionItems(r.Prescriptions),
		TotalCost:     num(r.TotalCost),
		Images:        r.Images,
		CreatedAt:     r.CreatedAt.Time(),
	}
}

func normalizePlan(r rawPlan) clinic.TreatmentPlan {
	return clinic.TreatmentPlan{
		ID:        string(r.ID),
		PatientID: firstID(r.PatientID, r.PatientIDSnake, refID(r.Patient)),
		DoctorID:  string(r.DoctorID),
		NurseID:   string(r.NurseID),
		Name:      r.Name,
		Status:    normalizePlanStatus(r.Status),
		TotalCost: num(r.TotalCost),
		CreatedAt: r.CreatedAt.Time(),
	}
}

func normalizePhase(r rawPhase, planID string) clinic.TreatmentPhase {
	pid := firstID(r.PlanID, r.PlanIDSnake)
	if pid == "" {
		pid = planID
	}
	phaseNo, _ := r.PhaseNumber.Int64()
	return clinic.TreatmentPhase{
		ID:            string(r.ID),
		PlanID:        pid,
		PhaseNumber:   int(phaseNo),
		StartDate:     r.StartDate.Time(),
		EndDate:       r.EndDate.Time(),
		Status:        normalizePlanStatus(r.Status),
		Cost:          num(r.Cost),
		Services:      normalizeLineItems(r.Services),
		Prescriptions: normalizePrescriptionItems(r.Prescriptions),
		Images:        r.Images,
		PaymentStatus: normalizeCostStatus(r.PaymentStatus),
	}
}

func normalizeCost(r rawCost) clinic.CostRecord {
	return clinic.CostRecord{
		ID:        string(r.ID),
		TotalCost: num(r.TotalCost, r.Amount),
		Status:    normalizeCostStatus(r.Status),
		Method:    r.Method,
		PaidAt:    r.PaidAt.Time(),
	}
}

func normalizeStaff(r rawStaff, role string) clinic.Staff {
	name := r.Name
	if name == "" {
		name = r.FullName
	}
	if r.Role != "" {
		role = r.Role
	}
	return clinic.Staff{
		ID:    string(r.ID),
		Name:  name,
		Role:  role,
		Phone: r.Phone,
	}
}

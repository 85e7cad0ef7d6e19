// Package clinic defines the canonical entity shapes the reconciliation
// engine operates on. Backend field-name variants are normalized into these
// types at the fetch boundary; nothing downstream inspects raw payloads.
package clinic

import (
	"strings"
	"time"
)

// AppointmentStatus is the canonical appointment lifecycle status.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "Scheduled"
	AppointmentDone      AppointmentStatus = "Done"
	AppointmentCancelled AppointmentStatus = "Cancelled"
)

// PlanStatus is the canonical treatment plan / phase status.
type PlanStatus string

const (
	PlanInprogress PlanStatus = "Inprogress"
	PlanDone       PlanStatus = "Done"
	PlanPaused     PlanStatus = "Paused"
	PlanCancelled  PlanStatus = "Cancelled"
)

// CostStatus is the canonical billing status of a cost record.
type CostStatus string

const (
	CostWait CostStatus = "wait"
	CostPaid CostStatus = "paid"
	CostDone CostStatus = "done"
)

// Paid reports whether a cost status counts toward paid revenue.
// Matching is case-insensitive; unknown or empty statuses never count.
func (s CostStatus) Paid() bool {
	switch strings.ToLower(string(s)) {
	case "paid", "done":
		return true
	}
	return false
}

// Patient is the join key for almost everything else.
type Patient struct {
	ID         string
	Name       string
	Phone      string
	Allergy    string
	BloodGroup string
	History    string
}

// Appointment links a patient to a doctor at a scheduled time. PatientID may
// be empty when the backend omitted the relation; the linker resolves those.
type Appointment struct {
	ID               string
	PatientID        string
	DoctorID         string
	ScheduledAt      time.Time
	Status           AppointmentStatus
	NotificationSent bool
}

// ServiceLineItem is one billable service line on an examination or phase.
type ServiceLineItem struct {
	Name      string
	Quantity  int64
	UnitPrice int64
	Cost      int64 // stored cost; zero means "recompute from quantity*unitPrice"
}

// PrescriptionLineItem is one prescribed medication line.
type PrescriptionLineItem struct {
	Name      string
	Quantity  int64
	UnitPrice int64
	Cost      int64
}

// Examination is a single visit record. Both PatientID and AppointmentID are
// optional on the wire; the engine links through whichever is present.
type Examination struct {
	ID            string
	AppointmentID string
	PatientID     string
	Diagnosis     string
	Treatment     string
	Services      []ServiceLineItem
	Prescriptions []PrescriptionLineItem
	TotalCost     int64
	Images        []string
	CreatedAt     time.Time
}

// TreatmentPlan is a multi-phase course of treatment for one patient.
type TreatmentPlan struct {
	ID        string
	PatientID string
	DoctorID  string
	NurseID   string
	Name      string
	Status    PlanStatus
	TotalCost int64
	CreatedAt time.Time
}

// TreatmentPhase is one stage of a treatment plan.
type TreatmentPhase struct {
	ID            string
	PlanID        string
	PhaseNumber   int
	StartDate     time.Time
	EndDate       time.Time
	Status        PlanStatus
	Cost          int64
	Services      []ServiceLineItem
	Prescriptions []PrescriptionLineItem
	Images        []string
	PaymentStatus CostStatus
}

// CostRecord shares its identity with the examination or phase it bills:
// CostRecord.ID equals the billable entity's id, one record per entity.
type CostRecord struct {
	ID        string
	TotalCost int64
	Status    CostStatus
	Method    string
	PaidAt    time.Time
}

// Staff is a doctor or nurse from the staff directory.
type Staff struct {
	ID    string
	Name  string
	Role  string
	Phone string
}

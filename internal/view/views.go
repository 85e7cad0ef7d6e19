package view

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/clinicboard/clinicboard/internal/aggregate"
	"github.com/clinicboard/clinicboard/internal/clinic"
	"github.com/clinicboard/clinicboard/internal/session"
)

// PatientView is the reconciled, patient-centric record set plus its derived
// numbers. Partial is set when a primary collection is missing; consumers
// render what exists.
type PatientView struct {
	PatientID     string                  `json:"patient_id"`
	Examinations  []clinic.Examination    `json:"examinations"`
	Plans         []clinic.TreatmentPlan  `json:"plans"`
	Phases        []clinic.TreatmentPhase `json:"phases"`
	Stats         aggregate.PatientStats  `json:"stats"`
	PaidRevenue   int64                   `json:"paid_revenue"`
	ActivePhases  int                     `json:"active_phases"`
	LowConfidence bool                    `json:"low_confidence"`
	StagesUsed    []string                `json:"stages_used"`
	Partial       bool                    `json:"partial"`
	Degraded      []string                `json:"degraded,omitempty"`
}

// DashboardRow is one patient's rollup on the clinic dashboard.
type DashboardRow struct {
	PatientID        string              `json:"patient_id"`
	ExaminationCount int                 `json:"examination_count"`
	PlanCount        int                 `json:"plan_count"`
	ActivePlanCount  int                 `json:"active_plan_count"`
	TotalCost        int64               `json:"total_cost"`
	LatestExamID     string              `json:"latest_examination_id,omitempty"`
	NextAppointment  *clinic.Appointment `json:"next_appointment,omitempty"`
}

// DashboardView is the clinic-wide aggregate view.
type DashboardView struct {
	GeneratedAt          time.Time            `json:"generated_at"`
	Ready                bool                 `json:"ready"`
	Partial              bool                 `json:"partial"`
	Degraded             []string             `json:"degraded,omitempty"`
	PaidRevenue          int64                `json:"paid_revenue"`
	ActivePhases         int                  `json:"active_phases"`
	ActivePlans          int                  `json:"active_plans"`
	PatientCount         int                  `json:"patient_count"`
	Rows                 []DashboardRow       `json:"rows"`
	UpcomingAppointments []clinic.Appointment `json:"upcoming_appointments"`
	NotificationPending  []clinic.Appointment `json:"notification_pending"`
	DoctorNames          map[string]string    `json:"doctor_names,omitempty"`
}

// dashboardMemo caches the last computed dashboard keyed by snapshot
// versions, so an unchanged snapshot set is not refolded.
type dashboardMemo struct {
	mu   sync.Mutex
	view *DashboardView
}

// Patient computes the reconciled view for one patient. Reverse lookups are
// issued on demand, in parallel, and their failures degrade to "no extra
// match". Never returns an error: read-side failure is partial data.
func (e *Engine) Patient(ctx context.Context, patientID string) PatientView {
	snap := e.store.snapshot()

	var reverse func(ctx context.Context, appointmentID string) (clinic.Examination, error)
	if e.caps.Allowed(session.CapExaminationsRead) && (e.lc == nil || e.lc.Issuable()) {
		reverse = e.backend.GetExaminationByAppointment
	}

	linked := e.linker.PatientRecords(ctx, snap, patientID, reverse)

	pv := PatientView{
		PatientID:     patientID,
		Examinations:  emptyNotNil(linked.Examinations),
		Plans:         emptyNotNilPlans(linked.Plans),
		Phases:        emptyNotNilPhases(linked.Phases),
		LowConfidence: linked.LowConfidence,
		StagesUsed:    linked.StagesUsed,
		Partial:       e.blocked() || len(e.degradedResources()) > 0,
		Degraded:      sortedDegraded(e.degradedResources()),
		ActivePhases:  aggregate.ActivePhaseCount(linked.Phases),
	}

	// Paid revenue for this patient: cost records covering their billables.
	for _, exam := range linked.Examinations {
		if c, ok := snap.Cost(exam.ID); ok && c.Status.Paid() {
			pv.PaidRevenue += c.TotalCost
		}
	}
	for _, phase := range linked.Phases {
		if c, ok := snap.Cost(phase.ID); ok && c.Status.Paid() {
			pv.PaidRevenue += c.TotalCost
		}
	}

	rollup := aggregate.PatientRollup(snap, e.now())
	if stats, ok := rollup[patientID]; ok {
		pv.Stats = stats
	} else {
		pv.Stats = aggregate.PatientStats{PatientID: patientID}
	}
	return pv
}

// Dashboard folds the current snapshot into the clinic-wide view. The fold is
// recomputed from scratch whenever any underlying collection changed and
// memoized otherwise.
func (e *Engine) Dashboard(ctx context.Context) DashboardView {
	_ = ctx
	versions := e.store.versionSet()

	e.dashboardMemo.mu.Lock()
	defer e.dashboardMemo.mu.Unlock()

	if e.dashboardMemo.view != nil && !e.memo.Changed(versions) {
		v := *e.dashboardMemo.view
		// Degradation state lives on the orchestrator, not the store: a fetch
		// that fails after the fold bumps no version, so it must be re-read
		// here or the memoized view would under-report for the whole session.
		v.Ready = e.orch.IsReady()
		v.Degraded = sortedDegraded(e.degradedResources())
		v.Partial = e.blocked() || len(v.Degraded) > 0
		return v
	}

	started := e.now()
	snap := e.store.snapshot()
	rollup := aggregate.PatientRollup(snap, started)

	rows := make([]DashboardRow, 0, len(rollup))
	for _, stats := range rollup {
		row := DashboardRow{
			PatientID:        stats.PatientID,
			ExaminationCount: stats.ExaminationCount,
			PlanCount:        stats.PlanCount,
			ActivePlanCount:  stats.ActivePlanCount,
			TotalCost:        stats.TotalCost,
			NextAppointment:  stats.NextAppointment,
		}
		if stats.LatestExamination != nil {
			row.LatestExamID = stats.LatestExamination.ID
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PatientID < rows[j].PatientID })

	var allPhases []clinic.TreatmentPhase
	for _, phases := range snap.Phases {
		allPhases = append(allPhases, phases...)
	}

	var upcoming, pending []clinic.Appointment
	for _, a := range snap.Appointments {
		if a.Status != clinic.AppointmentScheduled {
			continue
		}
		if a.ScheduledAt.After(started) {
			upcoming = append(upcoming, a)
		}
		if !a.NotificationSent {
			pending = append(pending, a)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].ScheduledAt.Before(upcoming[j].ScheduledAt) })
	sort.Slice(pending, func(i, j int) bool { return pending[i].ScheduledAt.Before(pending[j].ScheduledAt) })

	doctorNames := make(map[string]string, len(snap.Doctors))
	for _, d := range snap.Doctors {
		doctorNames[d.ID] = d.Name
	}

	dv := DashboardView{
		GeneratedAt:          started,
		Ready:                e.orch.IsReady(),
		Partial:              e.blocked() || len(e.degradedResources()) > 0,
		Degraded:             sortedDegraded(e.degradedResources()),
		PaidRevenue:          aggregate.PaidRevenue(snap.Costs),
		ActivePhases:         aggregate.ActivePhaseCount(allPhases),
		ActivePlans:          aggregate.ActivePlanCount(snap.Plans),
		PatientCount:         len(rollup),
		Rows:                 rows,
		UpcomingAppointments: emptyNotNilAppointments(upcoming),
		NotificationPending:  emptyNotNilAppointments(pending),
		DoctorNames:          doctorNames,
	}

	if e.metrics != nil {
		e.metrics.ObserveRecompute(time.Since(started).Seconds())
	}
	e.dashboardMemo.view = &dv
	e.memo.Commit(versions)
	return dv
}

func sortedDegraded(in []string) []string {
	sort.Strings(in)
	return in
}

// Failed sub-fetches contribute empty collections, never null, so consumers
// can iterate without nil checks.
func emptyNotNil(in []clinic.Examination) []clinic.Examination {
	if in == nil {
		return []clinic.Examination{}
	}
	return in
}

func emptyNotNilPlans(in []clinic.TreatmentPlan) []clinic.TreatmentPlan {
	if in == nil {
		return []clinic.TreatmentPlan{}
	}
	return in
}

func emptyNotNilPhases(in []clinic.TreatmentPhase) []clinic.TreatmentPhase {
	if in == nil {
		return []clinic.TreatmentPhase{}
	}
	return in
}

func emptyNotNilAppointments(in []clinic.Appointment) []clinic.Appointment {
	if in == nil {
		return []clinic.Appointment{}
	}
	return in
}

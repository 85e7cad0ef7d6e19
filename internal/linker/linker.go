// Package linker resolves which examinations, treatment plans and phases
// belong to a patient when the backend's foreign keys are incomplete. It
// applies an ordered fallback chain; the first three stages are exact, the
// last is a deliberately over-inclusive heuristic kept behind a logged,
// flagged path.
package linker

import (
	"context"
	"sort"
	"sync"

	"github.com/clinicboard/clinicboard/internal/backend"
	"github.com/clinicboard/clinicboard/internal/clinic"
	"github.com/clinicboard/clinicboard/internal/observability/metrics"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

// Stage names, reported in Result.StagesUsed and metrics.
const (
	StageDirect    = "direct"
	StageChain     = "appointment-chain"
	StageReverse   = "reverse-lookup"
	StageHeuristic = "heuristic"
)

// ReverseLookup fetches the examination recorded against an appointment id.
// backend.ErrNotFound means "no examination yet" and is not an error.
type ReverseLookup func(ctx context.Context, appointmentID string) (clinic.Examination, error)

// Result is the effective record set for one patient.
type Result struct {
	Examinations []clinic.Examination
	Plans        []clinic.TreatmentPlan
	Phases       []clinic.TreatmentPhase

	// LowConfidence is set when the heuristic stage contributed anything.
	// Consumers should present those records as tentative, not exact.
	LowConfidence bool
	StagesUsed    []string
}

// Linker links loaded snapshots to patients.
type Linker struct {
	logger  *logging.Logger
	metrics *metrics.EngineMetrics
}

// New creates a record linker.
func New(logger *logging.Logger, m *metrics.EngineMetrics) *Linker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Linker{logger: logger.Component("linker"), metrics: m}
}

// PatientRecords resolves the examinations, plans and phases belonging to
// patientID. reverse may be nil, in which case stage 3 is skipped. A failed
// reverse lookup never blocks the other stages.
func (l *Linker) PatientRecords(ctx context.Context, snap *clinic.Snapshot, patientID string, reverse ReverseLookup) Result {
	var res Result
	if snap == nil || patientID == "" {
		return res
	}

	exams := l.linkExaminations(ctx, snap, patientID, reverse, &res)
	res.Examinations = exams

	for _, p := range snap.Plans {
		if p.PatientID == patientID {
			res.Plans = append(res.Plans, p)
		}
	}
	for _, p := range res.Plans {
		res.Phases = append(res.Phases, snap.PlanPhases(p.ID)...)
	}

	sortResult(&res)
	return res
}

// linkExaminations walks the fallback chain, first match wins per record.
func (l *Linker) linkExaminations(ctx context.Context, snap *clinic.Snapshot, patientID string, reverse ReverseLookup, res *Result) []clinic.Examination {
	// matched is keyed by examination id; detail-fetch results overwrite
	// summary entries for the same id.
	matched := make(map[string]clinic.Examination)
	coveredAppointments := make(map[string]struct{})
	stages := make(map[string]bool)

	// Records positively linked elsewhere: a direct patient id pointing at a
	// different patient, or a chain resolving to a different patient. These
	// exclusions also disqualify the whole-pool fallback below.
	exclusions := 0
	var unlinkable []clinic.Examination

	for _, exam := range snap.Examinations {
		// Stage 1: direct foreign key.
		if exam.PatientID != "" {
			if exam.PatientID == patientID {
				matched[exam.ID] = exam
				stages[StageDirect] = true
				l.observeStage(StageDirect)
				if exam.AppointmentID != "" {
					coveredAppointments[exam.AppointmentID] = struct{}{}
				}
			} else {
				exclusions++
			}
			continue
		}
		// Stage 2: transitively through the appointment.
		if exam.AppointmentID != "" {
			if appt, ok := snap.AppointmentByID(exam.AppointmentID); ok && appt.PatientID != "" {
				if appt.PatientID == patientID {
					matched[exam.ID] = exam
					stages[StageChain] = true
					l.observeStage(StageChain)
					coveredAppointments[exam.AppointmentID] = struct{}{}
				} else {
					exclusions++
				}
				continue
			}
		}
		unlinkable = append(unlinkable, exam)
	}

	// Stage 3: reverse lookup for the patient's appointments that no matched
	// examination covers yet. One parallel fetch per appointment id; a failed
	// or empty lookup contributes nothing.
	patientAppointments := snap.PatientAppointments(patientID)
	if reverse != nil {
		var pending []string
		for _, appt := range patientAppointments {
			if _, covered := coveredAppointments[appt.ID]; !covered {
				pending = append(pending, appt.ID)
			}
		}
		if len(pending) > 0 {
			before := len(matched)
			var mu sync.Mutex
			var wg sync.WaitGroup
			for _, apptID := range pending {
				apptID := apptID
				wg.Add(1)
				go func() {
					defer wg.Done()
					exam, err := reverse(ctx, apptID)
					if err != nil {
						if !backend.IsExpected(err) {
							l.logger.Warn("reverse lookup failed", "appointment_id", apptID, "error", err)
						}
						return
					}
					if exam.ID == "" {
						return
					}
					mu.Lock()
					matched[exam.ID] = exam
					mu.Unlock()
				}()
			}
			wg.Wait()
			if len(matched) > before {
				stages[StageReverse] = true
				l.observeStage(StageReverse)
			}
		}
	}

	// Stage 4: heuristic last resort, only when the exact stages produced
	// nothing. Knowingly trades correctness for availability.
	if len(matched) == 0 {
		if len(patientAppointments) > 0 && len(unlinkable) == 1 {
			l.logger.Warn("heuristic link: attributing sole unlinkable examination",
				"patient_id", patientID, "examination_id", unlinkable[0].ID)
			if l.metrics != nil {
				l.metrics.ObserveHeuristicLink()
			}
			matched[unlinkable[0].ID] = unlinkable[0]
			stages[StageHeuristic] = true
			res.LowConfidence = true
		} else if exclusions == 0 && len(snap.Examinations) > 0 {
			l.logger.Warn("heuristic link: returning unfiltered examination pool",
				"patient_id", patientID, "pool_size", len(snap.Examinations))
			if l.metrics != nil {
				l.metrics.ObserveHeuristicLink()
			}
			for _, exam := range snap.Examinations {
				matched[exam.ID] = exam
			}
			stages[StageHeuristic] = true
			res.LowConfidence = true
		}
	}

	for _, s := range []string{StageDirect, StageChain, StageReverse, StageHeuristic} {
		if stages[s] {
			res.StagesUsed = append(res.StagesUsed, s)
		}
	}

	out := make([]clinic.Examination, 0, len(matched))
	for _, exam := range matched {
		out = append(out, exam)
	}
	return out
}

func (l *Linker) observeStage(stage string) {
	if l.metrics != nil {
		l.metrics.ObserveLinkerStage(stage)
	}
}

// sortResult orders everything deterministically so repeated recomputation
// from the same snapshot yields identical output regardless of fetch order.
func sortResult(res *Result) {
	sort.Slice(res.Examinations, func(i, j int) bool {
		return res.Examinations[i].ID < res.Examinations[j].ID
	})
	sort.Slice(res.Plans, func(i, j int) bool {
		return res.Plans[i].ID < res.Plans[j].ID
	})
	sort.Slice(res.Phases, func(i, j int) bool {
		if res.Phases[i].PlanID != res.Phases[j].PlanID {
			return res.Phases[i].PlanID < res.Phases[j].PlanID
		}
		return res.Phases[i].PhaseNumber < res.Phases[j].PhaseNumber
	})
}

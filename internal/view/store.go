package view

import (
	"sync"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

// store holds the fetched collections for one session. Writers are the fetch
// closures; readers take an immutable snapshot. Per-resource versions feed
// the recompute memoization.
type store struct {
	mu       sync.RWMutex
	version  uint64
	versions map[string]uint64

	appointments []clinic.Appointment
	examinations []clinic.Examination
	plans        []clinic.TreatmentPlan
	phases       map[string][]clinic.TreatmentPhase
	costs        map[string]clinic.CostRecord
	doctors      []clinic.Staff
	nurses       []clinic.Staff
}

func newStore() *store {
	return &store{
		versions: make(map[string]uint64),
		phases:   make(map[string][]clinic.TreatmentPhase),
		costs:    make(map[string]clinic.CostRecord),
	}
}

func (s *store) bump(resource string) {
	s.version++
	s.versions[resource] = s.version
}

func (s *store) setAppointments(items []clinic.Appointment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = items
	s.bump(resourceAppointments)
}

func (s *store) setExaminations(items []clinic.Examination) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.examinations = items
	s.bump(resourceExaminations)
}

func (s *store) setPlans(items []clinic.TreatmentPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans = items
	s.bump(resourcePlans)
}

func (s *store) setPhases(planID string, items []clinic.TreatmentPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases[planID] = items
	s.bump(resourcePhases)
}

func (s *store) setCost(c clinic.CostRecord) {
	if c.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs[c.ID] = c
	s.bump(resourceCosts)
}

func (s *store) setDoctors(items []clinic.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors = items
	s.bump(resourceDoctors)
}

func (s *store) setNurses(items []clinic.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nurses = items
	s.bump(resourceNurses)
}

// snapshot copies the collections into a read-only clinic.Snapshot. Slices
// and maps are copied shallowly; entities are value types and nothing
// downstream mutates them.
func (s *store) snapshot() *clinic.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &clinic.Snapshot{
		Version:      s.version,
		Appointments: append([]clinic.Appointment(nil), s.appointments...),
		Examinations: append([]clinic.Examination(nil), s.examinations...),
		Plans:        append([]clinic.TreatmentPlan(nil), s.plans...),
		Phases:       make(map[string][]clinic.TreatmentPhase, len(s.phases)),
		Costs:        make(map[string]clinic.CostRecord, len(s.costs)),
		Doctors:      append([]clinic.Staff(nil), s.doctors...),
		Nurses:       append([]clinic.Staff(nil), s.nurses...),
	}
	for k, v := range s.phases {
		snap.Phases[k] = append([]clinic.TreatmentPhase(nil), v...)
	}
	for k, v := range s.costs {
		snap.Costs[k] = v
	}
	return snap
}

// versionSet returns the per-resource version map for memoization checks.
func (s *store) versionSet() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]uint64, len(s.versions))
	for k, v := range s.versions {
		out[k] = v
	}
	return out
}

// planIDs returns the ids of the loaded plans, for phase fan-out.
func (s *store) planIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.plans))
	for _, p := range s.plans {
		ids = append(ids, p.ID)
	}
	return ids
}

// examinationIDs returns the loaded examination ids, for cost fan-out.
func (s *store) examinationIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.examinations))
	for _, e := range s.examinations {
		ids = append(ids, e.ID)
	}
	return ids
}

func (s *store) phaseIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, phases := range s.phases {
		for _, p := range phases {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

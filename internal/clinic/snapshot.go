package clinic

// Snapshot is a read-only view of everything fetched for one session. Linking
// and aggregation read from it and never mutate it; a changed collection is
// swapped in wholesale and bumps Version so derived views know to recompute.
type Snapshot struct {
	Version      uint64
	Appointments []Appointment
	Examinations []Examination
	Plans        []TreatmentPlan
	Phases       map[string][]TreatmentPhase // keyed by plan id
	Costs        map[string]CostRecord       // keyed by billable entity id
	Doctors      []Staff
	Nurses       []Staff
}

// AppointmentByID returns the appointment with the given id, if loaded.
func (s *Snapshot) AppointmentByID(id string) (Appointment, bool) {
	if s == nil || id == "" {
		return Appointment{}, false
	}
	for _, a := range s.Appointments {
		if a.ID == id {
			return a, true
		}
	}
	return Appointment{}, false
}

// PatientAppointments returns all appointments carrying the given patient id.
func (s *Snapshot) PatientAppointments(patientID string) []Appointment {
	if s == nil || patientID == "" {
		return nil
	}
	var out []Appointment
	for _, a := range s.Appointments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out
}

// PlanPhases returns the loaded phases for a plan, empty when the phase fetch
// failed or was skipped.
func (s *Snapshot) PlanPhases(planID string) []TreatmentPhase {
	if s == nil || s.Phases == nil {
		return nil
	}
	return s.Phases[planID]
}

// Cost returns the cost record covering the given examination or phase id.
func (s *Snapshot) Cost(id string) (CostRecord, bool) {
	if s == nil || s.Costs == nil {
		return CostRecord{}, false
	}
	c, ok := s.Costs[id]
	return c, ok
}

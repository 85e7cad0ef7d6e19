// Package aggregate folds linked records into the derived numbers the
// dashboards show. Every fold is a pure function recomputed from scratch on
// each snapshot change; nothing here keeps state between calls.
package aggregate

import "github.com/clinicboard/clinicboard/internal/clinic"

// lineCost applies the uniform precedence rule: trust an explicit non-zero
// stored cost, otherwise recompute from quantity and unit price. Source
// fields are inconsistently populated, so both paths are always considered.
func lineCost(stored, quantity, unitPrice int64) int64 {
	if stored > 0 {
		return stored
	}
	return quantity * unitPrice
}

// ServiceItemCost returns the effective cost of one service line item.
func ServiceItemCost(it clinic.ServiceLineItem) int64 {
	return lineCost(it.Cost, it.Quantity, it.UnitPrice)
}

// PrescriptionItemCost returns the effective cost of one prescription line.
func PrescriptionItemCost(it clinic.PrescriptionLineItem) int64 {
	return lineCost(it.Cost, it.Quantity, it.UnitPrice)
}

// PhaseCost is the sum of a phase's line-item costs when it has any line
// items, otherwise its stored cost field. The two sources are never summed
// together, which would double-count.
func PhaseCost(p clinic.TreatmentPhase) int64 {
	if len(p.Services) == 0 && len(p.Prescriptions) == 0 {
		return p.Cost
	}
	var total int64
	for _, it := range p.Services {
		total += ServiceItemCost(it)
	}
	for _, it := range p.Prescriptions {
		total += PrescriptionItemCost(it)
	}
	return total
}

// ExaminationCost is the sum of an examination's line-item costs, falling
// back to its stored total when no line items were loaded.
func ExaminationCost(e clinic.Examination) int64 {
	if len(e.Services) == 0 && len(e.Prescriptions) == 0 {
		return e.TotalCost
	}
	var total int64
	for _, it := range e.Services {
		total += ServiceItemCost(it)
	}
	for _, it := range e.Prescriptions {
		total += PrescriptionItemCost(it)
	}
	return total
}

// PlanCost sums the per-phase costs across all phases of a plan, falling back
// to the plan's stored total only when it has no phases.
func PlanCost(plan clinic.TreatmentPlan, phases []clinic.TreatmentPhase) int64 {
	if len(phases) == 0 {
		return plan.TotalCost
	}
	var total int64
	for _, p := range phases {
		total += PhaseCost(p)
	}
	return total
}

package aggregate

import "github.com/clinicboard/clinicboard/internal/clinic"

// PaidRevenue sums the totals of cost records whose status is paid/done,
// case-insensitively. Unpaid or unknown statuses contribute nothing; a
// missing status is never assumed paid.
func PaidRevenue(costs map[string]clinic.CostRecord) int64 {
	var total int64
	for _, c := range costs {
		if c.Status.Paid() {
			total += c.TotalCost
		}
	}
	return total
}

// ActivePhaseCount counts phases whose status equals the canonical
// Inprogress value. Matching is exact: normalization upstream already mapped
// backend variants onto the canonical form, so a non-canonical status here is
// unknown, not active.
func ActivePhaseCount(phases []clinic.TreatmentPhase) int {
	n := 0
	for _, p := range phases {
		if p.Status == clinic.PlanInprogress {
			n++
		}
	}
	return n
}

// ActivePlanCount counts plans with canonical Inprogress status.
func ActivePlanCount(plans []clinic.TreatmentPlan) int {
	n := 0
	for _, p := range plans {
		if p.Status == clinic.PlanInprogress {
			n++
		}
	}
	return n
}

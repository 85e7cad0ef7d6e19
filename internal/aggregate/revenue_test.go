package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

func TestPaidRevenue(t *testing.T) {
	costs := map[string]clinic.CostRecord{
		"e1": {ID: "e1", TotalCost: 100, Status: "paid"},
		"e2": {ID: "e2", TotalCost: 200, Status: "wait"},
		"e3": {ID: "e3", TotalCost: 300, Status: "Done"},
	}
	assert.Equal(t, int64(400), PaidRevenue(costs), "wait must be excluded, Done counts case-insensitively")
}

func TestPaidRevenue_UnknownStatusExcluded(t *testing.T) {
	costs := map[string]clinic.CostRecord{
		"a": {ID: "a", TotalCost: 100, Status: ""},
		"b": {ID: "b", TotalCost: 200, Status: "refunded"},
		"c": {ID: "c", TotalCost: 50, Status: "PAID"},
	}
	assert.Equal(t, int64(50), PaidRevenue(costs))
}

func TestPaidRevenue_Empty(t *testing.T) {
	assert.Equal(t, int64(0), PaidRevenue(nil))
	assert.Equal(t, int64(0), PaidRevenue(map[string]clinic.CostRecord{}))
}

func TestActivePhaseCount(t *testing.T) {
	phases := []clinic.TreatmentPhase{
		{Status: clinic.PlanInprogress},
		{Status: clinic.PlanDone},
		{Status: clinic.PlanInprogress},
		{Status: clinic.PlanPaused},
		// non-canonical casing is unknown, not active
		{Status: clinic.PlanStatus("inprogress")},
	}
	assert.Equal(t, 2, ActivePhaseCount(phases))
}

func TestActivePlanCount(t *testing.T) {
	plans := []clinic.TreatmentPlan{
		{Status: clinic.PlanInprogress},
		{Status: clinic.PlanCancelled},
	}
	assert.Equal(t, 1, ActivePlanCount(plans))
}

package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clinicboard/clinicboard/internal/clinic"
)

func TestServiceItemCost(t *testing.T) {
	tests := []struct {
		name string
		item clinic.ServiceLineItem
		want int64
	}{
		{"stored cost wins", clinic.ServiceLineItem{Quantity: 2, UnitPrice: 100000, Cost: 150000}, 150000},
		{"zero stored cost recomputes", clinic.ServiceLineItem{Quantity: 2, UnitPrice: 100000, Cost: 0}, 200000},
		{"negative stored cost recomputes", clinic.ServiceLineItem{Quantity: 3, UnitPrice: 50000, Cost: -1}, 150000},
		{"all zero", clinic.ServiceLineItem{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServiceItemCost(tt.item))
		})
	}
}

func TestPhaseCost_LineItemPrecedence(t *testing.T) {
	// Service line recomputes (stored cost 0), prescription line keeps its
	// stored cost: 2*100000 + 75000.
	phase := clinic.TreatmentPhase{
		Cost: 999999, // stored phase cost must be ignored once line items exist
		Services: []clinic.ServiceLineItem{
			{Quantity: 2, UnitPrice: 100000, Cost: 0},
		},
		Prescriptions: []clinic.PrescriptionLineItem{
			{Quantity: 1, UnitPrice: 50000, Cost: 75000},
		},
	}
	assert.Equal(t, int64(275000), PhaseCost(phase))
}

func TestPhaseCost_StoredFallback(t *testing.T) {
	phase := clinic.TreatmentPhase{Cost: 120000}
	assert.Equal(t, int64(120000), PhaseCost(phase))
}

func TestExaminationCost(t *testing.T) {
	exam := clinic.Examination{
		TotalCost: 500,
		Services: []clinic.ServiceLineItem{
			{Quantity: 1, UnitPrice: 300},
		},
	}
	assert.Equal(t, int64(300), ExaminationCost(exam), "line items beat stored total")

	bare := clinic.Examination{TotalCost: 500}
	assert.Equal(t, int64(500), ExaminationCost(bare), "stored total when no line items")
}

func TestPlanCost(t *testing.T) {
	plan := clinic.TreatmentPlan{ID: "p1", TotalCost: 900}

	phases := []clinic.TreatmentPhase{
		{Cost: 100},
		{Services: []clinic.ServiceLineItem{{Quantity: 2, UnitPrice: 150}}},
	}
	assert.Equal(t, int64(400), PlanCost(plan, phases))
	assert.Equal(t, int64(900), PlanCost(plan, nil), "stored plan total only without phases")
}

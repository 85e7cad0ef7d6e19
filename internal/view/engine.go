// Package view is the top of the engine: it owns the fetch plan for a view
// session, applies the degradation policy, and folds linked records into the
// patient and dashboard views the presentation layer consumes.
package view

import (
	"context"
	"errors"
	"time"

	"github.com/clinicboard/clinicboard/internal/backend"
	"github.com/clinicboard/clinicboard/internal/cache"
	"github.com/clinicboard/clinicboard/internal/clinic"
	"github.com/clinicboard/clinicboard/internal/fetch"
	"github.com/clinicboard/clinicboard/internal/linker"
	"github.com/clinicboard/clinicboard/internal/observability/metrics"
	"github.com/clinicboard/clinicboard/internal/session"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

// Resource keys of the fetch plan. Primary collections gate readiness.
const (
	resourceAppointments = "appointments"
	resourceExaminations = "examinations"
	resourcePlans        = "plans"
	resourcePhases       = "phases"
	resourceExamCosts    = "exam-costs"
	resourcePhaseCosts   = "phase-costs"
	resourceCosts        = "costs"
	resourceDoctors      = "doctors"
	resourceNurses       = "nurses"
)

// Backend is the slice of the clinic API client the engine consumes.
type Backend interface {
	ListAppointments(ctx context.Context, filter backend.AppointmentFilter) ([]clinic.Appointment, error)
	ListExaminations(ctx context.Context) ([]clinic.Examination, error)
	GetExaminationByAppointment(ctx context.Context, appointmentID string) (clinic.Examination, error)
	ListTreatmentPlans(ctx context.Context) ([]clinic.TreatmentPlan, error)
	ListPhasesByPlan(ctx context.Context, planID string) ([]clinic.TreatmentPhase, error)
	GetCostRecord(ctx context.Context, id string) (clinic.CostRecord, error)
	ListDoctors(ctx context.Context) ([]clinic.Staff, error)
	ListNurses(ctx context.Context) ([]clinic.Staff, error)
	MarkAppointmentNotified(ctx context.Context, appointmentID string) error
	UpdatePayment(ctx context.Context, costID, method, status string) error
}

// Config configures an Engine.
type Config struct {
	Backend      Backend
	Capabilities *session.Capabilities
	Lifecycle    *session.Lifecycle
	Cache        *cache.SnapshotCache
	Metrics      *metrics.EngineMetrics
	Logger       *logging.Logger

	ReadinessTimeout time.Duration
	RetryBackoff     time.Duration

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
	// After is passed through to the orchestrator; defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// Engine runs the reconciliation for one view session.
type Engine struct {
	backend Backend
	caps    *session.Capabilities
	lc      *session.Lifecycle
	cache   *cache.SnapshotCache
	metrics *metrics.EngineMetrics
	logger  *logging.Logger
	linker  *linker.Linker

	store *store
	memo  *fetch.Memo
	orch  *fetch.Orchestrator

	timeout time.Duration
	backoff time.Duration
	now     func() time.Time
	after   func(time.Duration) <-chan time.Time

	dashboardMemo *dashboardMemo
}

// NewEngine builds an engine; Start must be called before views are served.
func NewEngine(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	e := &Engine{
		backend:       cfg.Backend,
		caps:          cfg.Capabilities,
		lc:            cfg.Lifecycle,
		cache:         cfg.Cache,
		metrics:       cfg.Metrics,
		logger:        logger.Component("view"),
		linker:        linker.New(logger, cfg.Metrics),
		store:         newStore(),
		memo:          fetch.NewMemo(),
		timeout:       cfg.ReadinessTimeout,
		backoff:       cfg.RetryBackoff,
		now:           now,
		after:         cfg.After,
		dashboardMemo: &dashboardMemo{},
	}

	orch, err := fetch.New(fetch.Config{
		Plan:             e.plan(),
		Capabilities:     cfg.Capabilities,
		Lifecycle:        cfg.Lifecycle,
		Logger:           logger,
		Metrics:          cfg.Metrics,
		ReadinessTimeout: cfg.ReadinessTimeout,
		RetryBackoff:     cfg.RetryBackoff,
		After:            cfg.After,
	})
	if err != nil {
		return nil, err
	}
	e.orch = orch

	if cfg.Lifecycle != nil {
		cfg.Lifecycle.OnLogout(orch.Stop)
	}
	return e, nil
}

// plan declares every fetch of a view session. Appointments, examinations
// and plans are the primaries; everything else is secondary and never
// retries.
func (e *Engine) plan() fetch.Plan {
	return fetch.Plan{
		{
			Key:        resourceAppointments,
			Capability: session.CapAppointmentsRead,
			Primary:    true,
			Retry:      1,
			Run: func(ctx context.Context, _ string) error {
				var items []clinic.Appointment
				if e.cache.Get(ctx, resourceAppointments, &items) {
					e.store.setAppointments(items)
					return nil
				}
				items, err := e.backend.ListAppointments(ctx, backend.AppointmentsAll)
				if err != nil {
					return err
				}
				e.store.setAppointments(items)
				e.cache.Set(ctx, resourceAppointments, items)
				return nil
			},
		},
		{
			Key:        resourceExaminations,
			Capability: session.CapExaminationsRead,
			Primary:    true,
			Retry:      1,
			Run: func(ctx context.Context, _ string) error {
				var items []clinic.Examination
				if e.cache.Get(ctx, resourceExaminations, &items) {
					e.store.setExaminations(items)
					return nil
				}
				items, err := e.backend.ListExaminations(ctx)
				if err != nil {
					return err
				}
				e.store.setExaminations(items)
				e.cache.Set(ctx, resourceExaminations, items)
				return nil
			},
		},
		{
			Key:        resourcePlans,
			Capability: session.CapPlansRead,
			Primary:    true,
			Retry:      1,
			Run: func(ctx context.Context, _ string) error {
				var items []clinic.TreatmentPlan
				if e.cache.Get(ctx, resourcePlans, &items) {
					e.store.setPlans(items)
					return nil
				}
				items, err := e.backend.ListTreatmentPlans(ctx)
				if err != nil {
					return err
				}
				e.store.setPlans(items)
				e.cache.Set(ctx, resourcePlans, items)
				return nil
			},
		},
		{
			Key:        resourcePhases,
			Capability: session.CapPlansRead,
			DependsOn:  resourcePlans,
			Fanout:     e.store.planIDs,
			Run: func(ctx context.Context, planID string) error {
				items, err := e.backend.ListPhasesByPlan(ctx, planID)
				if err != nil {
					return err
				}
				e.store.setPhases(planID, items)
				return nil
			},
		},
		{
			Key:        resourceExamCosts,
			Capability: session.CapBillingRead,
			DependsOn:  resourceExaminations,
			Fanout:     e.store.examinationIDs,
			Run:        e.fetchCost,
		},
		{
			Key:        resourcePhaseCosts,
			Capability: session.CapBillingRead,
			DependsOn:  resourcePhases,
			Fanout:     e.store.phaseIDs,
			Run:        e.fetchCost,
		},
		{
			Key:        resourceDoctors,
			Capability: session.CapStaffRead,
			Run: func(ctx context.Context, _ string) error {
				items, err := e.backend.ListDoctors(ctx)
				if err != nil {
					return err
				}
				e.store.setDoctors(items)
				return nil
			},
		},
		{
			Key:        resourceNurses,
			Capability: session.CapStaffRead,
			Run: func(ctx context.Context, _ string) error {
				items, err := e.backend.ListNurses(ctx)
				if err != nil {
					return err
				}
				e.store.setNurses(items)
				return nil
			},
		},
	}
}

// fetchCost loads the cost record sharing the billable entity's id. Not
// found means "not billed yet" and stores nothing.
func (e *Engine) fetchCost(ctx context.Context, id string) error {
	var c clinic.CostRecord
	if e.cache.Get(ctx, "cost:"+id, &c) {
		e.store.setCost(c)
		return nil
	}
	c, err := e.backend.GetCostRecord(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return nil
		}
		return err
	}
	e.store.setCost(c)
	e.cache.Set(ctx, "cost:"+id, c)
	return nil
}

// Start issues the fetch plan. Views can be requested immediately; they
// degrade until the data arrives.
func (e *Engine) Start(ctx context.Context) {
	e.orch.Start(ctx)
}

// Stop cancels all in-flight fetches for this view session.
func (e *Engine) Stop() { e.orch.Stop() }

// Ready is closed when all primaries settled or the deadline elapsed.
func (e *Engine) Ready() <-chan struct{} { return e.orch.Ready() }

// Wait blocks until readiness or context cancellation.
func (e *Engine) Wait(ctx context.Context) error { return e.orch.Wait(ctx) }

// Snapshot returns the current read-only snapshot.
func (e *Engine) Snapshot() *clinic.Snapshot { return e.store.snapshot() }

// blocked reports whether consumers should still be held: some primary is
// pending and the deadline has not elapsed. Everything else renders
// progressively.
func (e *Engine) blocked() bool {
	if e.orch.IsReady() {
		return false
	}
	for _, key := range []string{resourceAppointments, resourceExaminations, resourcePlans} {
		if !e.orch.StateOf(key).Outcome.Settled() {
			return true
		}
	}
	return false
}

// degradedResources lists resources that contributed empty collections
// because their fetch failed or was skipped.
func (e *Engine) degradedResources() []string {
	var out []string
	for key, st := range e.orch.States() {
		if st.Outcome == fetch.Failed {
			out = append(out, key)
		}
	}
	return out
}

package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clinicboard/clinicboard/internal/backend"
	"github.com/clinicboard/clinicboard/internal/observability/metrics"
	"github.com/clinicboard/clinicboard/internal/session"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultRetryBackoff     = 500 * time.Millisecond
)

// Config configures an Orchestrator for one view session.
type Config struct {
	Plan         Plan
	Capabilities *session.Capabilities
	Lifecycle    *session.Lifecycle
	Logger       *logging.Logger
	Metrics      *metrics.EngineMetrics

	// ReadinessTimeout bounds how long consumers wait on primaries before the
	// orchestrator reports ready regardless. Default 10s.
	ReadinessTimeout time.Duration
	// RetryBackoff is the fixed delay before a primary's single retry.
	RetryBackoff time.Duration

	// After is injectable for tests; defaults to time.After.
	After func(time.Duration) <-chan time.Time
}

// Orchestrator issues the fetches of a plan, tracks per-fetch state, and
// produces the unified readiness signal. One orchestrator per view session;
// not reusable after Stop.
type Orchestrator struct {
	plan    Plan
	caps    *session.Capabilities
	lc      *session.Lifecycle
	logger  *logging.Logger
	metrics *metrics.EngineMetrics

	timeout time.Duration
	backoff time.Duration
	after   func(time.Duration) <-chan time.Time

	states *stateTable

	mu               sync.Mutex
	pendingPrimaries int

	ready     chan struct{}
	readyOnce sync.Once

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds an orchestrator. Returns an error if the plan is malformed.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	after := cfg.After
	if after == nil {
		after = time.After
	}
	return &Orchestrator{
		plan:    cfg.Plan,
		caps:    cfg.Capabilities,
		lc:      cfg.Lifecycle,
		logger:  logger.Component("fetch"),
		metrics: cfg.Metrics,
		timeout: timeout,
		backoff: backoff,
		after:   after,
		states:  newStateTable(),
		ready:   make(chan struct{}),
	}, nil
}

// Start issues every top-level fetch in parallel and arms the readiness
// timer. It returns immediately; completion is observed via Ready/Wait.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)

	o.mu.Lock()
	for _, d := range o.plan {
		if d.Primary {
			o.pendingPrimaries++
		}
	}
	pending := o.pendingPrimaries
	o.mu.Unlock()
	if pending == 0 {
		o.signalReady("no primaries in plan")
	}

	// The deadline starts when the session identity is established, i.e. at
	// plan start, and unblocks consumers even if primaries never settle.
	timer := o.after(o.timeout)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		select {
		case <-timer:
			o.signalReady("timeout elapsed")
		case <-o.ready:
		case <-ctx.Done():
			o.signalReady("session cancelled")
		}
	}()

	for _, d := range o.plan {
		if d.DependsOn != "" {
			continue
		}
		o.launchTop(ctx, d)
	}
}

// Stop cancels every in-flight fetch for this view session.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	o.wg.Wait()
}

// Ready is closed once all primary fetches settled or the deadline elapsed.
func (o *Orchestrator) Ready() <-chan struct{} { return o.ready }

// IsReady reports whether the readiness predicate already holds.
func (o *Orchestrator) IsReady() bool {
	select {
	case <-o.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until readiness or context cancellation.
func (o *Orchestrator) Wait(ctx context.Context) error {
	select {
	case <-o.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StateOf returns the tracked state for a descriptor key, or a fan-out child
// keyed "<key>/<parentID>".
func (o *Orchestrator) StateOf(key string) State { return o.states.get(key) }

// States returns a copy of all tracked fetch states.
func (o *Orchestrator) States() map[string]State { return o.states.snapshot() }

func (o *Orchestrator) signalReady(reason string) {
	o.readyOnce.Do(func() {
		o.logger.Info("view ready", "reason", reason)
		close(o.ready)
	})
}

func (o *Orchestrator) settle(d Descriptor, key string, s State) {
	o.states.set(key, s)
	if o.metrics != nil {
		o.metrics.ObserveFetch(d.Key, s.Outcome.String())
		if s.Outcome == Failed || s.Outcome == Skipped {
			o.metrics.ObserveDegraded(d.Key)
		}
	}
	if !d.Primary || key != d.Key {
		return
	}
	o.mu.Lock()
	o.pendingPrimaries--
	done := o.pendingPrimaries == 0
	o.mu.Unlock()
	if done {
		o.signalReady("all primaries settled")
	}
}

func (o *Orchestrator) issuable() bool {
	return o.lc == nil || o.lc.Issuable()
}

func (o *Orchestrator) allowed(d Descriptor) bool {
	if d.Capability == "" {
		return true
	}
	return o.caps.Allowed(d.Capability)
}

func (o *Orchestrator) launchTop(ctx context.Context, d Descriptor) {
	if !o.allowed(d) {
		o.logger.Debug("fetch skipped, capability not granted", "resource", d.Key, "capability", string(d.Capability))
		o.settle(d, d.Key, State{Outcome: Skipped})
		o.skipChildren(d.Key, "parent skipped")
		return
	}
	if !o.issuable() {
		o.settle(d, d.Key, State{Outcome: Skipped})
		o.skipChildren(d.Key, "logout in progress")
		return
	}
	o.states.set(d.Key, State{Outcome: Pending})
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.runWithRetry(ctx, d)
	}()
}

func (o *Orchestrator) runWithRetry(ctx context.Context, d Descriptor) {
	var err error
	attempts := 0
	for {
		attempts++
		err = d.Run(ctx, "")
		if err == nil || attempts > d.Retry || ctx.Err() != nil {
			break
		}
		if o.metrics != nil {
			o.metrics.ObserveRetry(d.Key)
		}
		o.logger.Warn("primary fetch failed, retrying", "resource", d.Key, "attempt", attempts, "error", err)
		select {
		case <-o.after(o.backoff):
		case <-ctx.Done():
		}
		if ctx.Err() != nil || !o.issuable() {
			break
		}
	}
	if err != nil {
		if backend.IsExpected(err) || errors.Is(err, context.Canceled) {
			o.logger.Debug("fetch degraded to empty", "resource", d.Key, "error", err)
		} else {
			o.logger.Warn("fetch failed", "resource", d.Key, "attempts", attempts, "error", err)
		}
		o.settle(d, d.Key, State{Outcome: Failed, Err: err, Attempts: attempts})
		o.skipChildren(d.Key, "parent failed")
		return
	}
	o.settle(d, d.Key, State{Outcome: Loaded, Attempts: attempts})
	o.launchChildren(ctx, d.Key)
}

func (o *Orchestrator) skipChildren(parent, reason string) {
	for _, child := range o.plan.children(parent) {
		o.logger.Debug("dependent fetch skipped", "resource", child.Key, "reason", reason)
		o.settle(child, child.Key, State{Outcome: Skipped})
		o.skipChildren(child.Key, "parent skipped")
	}
}

// launchChildren fans a dependent descriptor out over its parent ids, one
// parallel fetch each. Children never retry and their failures degrade
// individually without affecting siblings.
func (o *Orchestrator) launchChildren(ctx context.Context, parent string) {
	for _, child := range o.plan.children(parent) {
		child := child
		if !o.allowed(child) {
			o.settle(child, child.Key, State{Outcome: Skipped})
			o.skipChildren(child.Key, "parent skipped")
			continue
		}
		ids := child.Fanout()
		if len(ids) == 0 {
			o.settle(child, child.Key, State{Outcome: Skipped})
			o.skipChildren(child.Key, "parent empty")
			continue
		}
		if !o.issuable() {
			o.settle(child, child.Key, State{Outcome: Skipped})
			o.skipChildren(child.Key, "logout in progress")
			continue
		}
		o.states.set(child.Key, State{Outcome: Pending})
		var childWG sync.WaitGroup
		for _, id := range ids {
			id := id
			childWG.Add(1)
			o.wg.Add(1)
			go func() {
				defer childWG.Done()
				defer o.wg.Done()
				key := child.Key + "/" + id
				if err := child.Run(ctx, id); err != nil {
					if backend.IsExpected(err) || errors.Is(err, context.Canceled) {
						o.logger.Debug("dependent fetch degraded", "resource", child.Key, "parent_id", id, "error", err)
					} else {
						o.logger.Warn("dependent fetch failed", "resource", child.Key, "parent_id", id, "error", err)
					}
					o.settle(child, key, State{Outcome: Failed, Err: err, Attempts: 1})
					return
				}
				o.settle(child, key, State{Outcome: Loaded, Attempts: 1})
			}()
		}
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			childWG.Wait()
			// Aggregate key settles once every fan-out child did; individual
			// failures stay visible under their child keys.
			o.settle(child, child.Key, State{Outcome: Loaded})
			o.launchChildren(ctx, child.Key)
		}()
	}
}

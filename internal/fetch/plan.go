// Package fetch runs the dependency-aware fetch plan for one view session:
// capability gating, parallel issuance, bounded retries, and the readiness
// deadline that unblocks consumers even when fetches are still pending.
package fetch

import (
	"context"
	"fmt"

	"github.com/clinicboard/clinicboard/internal/session"
)

// Descriptor declares one fetch in the plan. The plan is data, not control
// flow: capability checks and dependency gating are evaluated from these
// fields instead of conditionals at call sites.
type Descriptor struct {
	// Key identifies the resource, e.g. "appointments" or "phases".
	Key string

	// Capability required to issue the fetch. When not granted the fetch is
	// skipped outright, which downstream treats as successfully-empty.
	Capability session.Capability

	// Primary marks the collections that gate overall readiness.
	Primary bool

	// Retry is the number of re-attempts after a failure. Primaries use 1,
	// dependent fetches 0 so an empty or unauthorized parent cannot cause a
	// request storm.
	Retry int

	// DependsOn names the parent descriptor. The fetch is only issued after
	// the parent loaded successfully and Fanout returned a non-empty id set.
	DependsOn string

	// Fanout lists the parent ids to fan out over, one parallel fetch each.
	// Nil for top-level fetches.
	Fanout func() []string

	// Run performs the fetch and stores its snapshot. parentID is empty for
	// top-level fetches. Run must be safe to call concurrently with other
	// descriptors' Run functions.
	Run func(ctx context.Context, parentID string) error
}

// Plan is an ordered list of descriptors. Order carries no execution
// semantics; everything not dependency-gated runs in parallel.
type Plan []Descriptor

// Validate checks referential integrity of the plan.
func (p Plan) Validate() error {
	keys := make(map[string]struct{}, len(p))
	for _, d := range p {
		if d.Key == "" {
			return fmt.Errorf("fetch: descriptor with empty key")
		}
		if _, dup := keys[d.Key]; dup {
			return fmt.Errorf("fetch: duplicate descriptor key %q", d.Key)
		}
		if d.Run == nil {
			return fmt.Errorf("fetch: descriptor %q has no run func", d.Key)
		}
		keys[d.Key] = struct{}{}
	}
	for _, d := range p {
		if d.DependsOn == "" {
			continue
		}
		if _, ok := keys[d.DependsOn]; !ok {
			return fmt.Errorf("fetch: descriptor %q depends on unknown %q", d.Key, d.DependsOn)
		}
		if d.Fanout == nil {
			return fmt.Errorf("fetch: dependent descriptor %q has no fanout", d.Key)
		}
		if d.Primary {
			return fmt.Errorf("fetch: dependent descriptor %q cannot be primary", d.Key)
		}
	}
	return nil
}

func (p Plan) children(parent string) []Descriptor {
	var out []Descriptor
	for _, d := range p {
		if d.DependsOn == parent {
			out = append(out, d)
		}
	}
	return out
}

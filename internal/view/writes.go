package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicboard/clinicboard/internal/backend"
	"github.com/clinicboard/clinicboard/internal/session"
)

// The two write operations are the only paths whose failures surface to the
// user. On success they invalidate the affected cached collections and
// re-fetch them so the next view reflects the mutation; the re-fetch itself
// degrades silently like any read.

// ErrForbidden marks write attempts rejected locally, before any backend
// call: a missing capability or a session already logging out.
var ErrForbidden = errors.New("view: operation not permitted")

// MarkAppointmentNotified records that the reminder for an appointment went
// out, then refreshes the appointments collection.
func (e *Engine) MarkAppointmentNotified(ctx context.Context, appointmentID string) error {
	if !e.caps.Allowed(session.CapAppointmentsNotify) {
		return fmt.Errorf("%w: capability %s not granted", ErrForbidden, session.CapAppointmentsNotify)
	}
	if e.lc != nil && !e.lc.Issuable() {
		return fmt.Errorf("%w: session is logging out", ErrForbidden)
	}
	if err := e.backend.MarkAppointmentNotified(ctx, appointmentID); err != nil {
		return fmt.Errorf("view: mark appointment notified: %w", err)
	}
	e.cache.Invalidate(ctx, resourceAppointments)
	e.refreshAppointments(ctx)
	return nil
}

// UpdatePayment sets payment method and status on a cost record, then
// refreshes that record.
func (e *Engine) UpdatePayment(ctx context.Context, costID, method, status string) error {
	if !e.caps.Allowed(session.CapBillingWrite) {
		return fmt.Errorf("%w: capability %s not granted", ErrForbidden, session.CapBillingWrite)
	}
	if e.lc != nil && !e.lc.Issuable() {
		return fmt.Errorf("%w: session is logging out", ErrForbidden)
	}
	if err := e.backend.UpdatePayment(ctx, costID, method, status); err != nil {
		return fmt.Errorf("view: update payment: %w", err)
	}
	e.cache.Invalidate(ctx, "cost:"+costID)
	if err := e.fetchCost(ctx, costID); err != nil {
		e.logger.Warn("cost refresh after payment update failed", "cost_id", costID, "error", err)
	}
	return nil
}

func (e *Engine) refreshAppointments(ctx context.Context) {
	if !e.caps.Allowed(session.CapAppointmentsRead) {
		return
	}
	items, err := e.backend.ListAppointments(ctx, backend.AppointmentsAll)
	if err != nil {
		e.logger.Warn("appointment refresh failed", "error", err)
		return
	}
	e.store.setAppointments(items)
	e.cache.Set(ctx, resourceAppointments, items)
}

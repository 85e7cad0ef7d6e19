// Package backend is the typed client for the remote clinic service. It owns
// the fetch boundary: HTTP transport, bearer auth, status-code taxonomy, and
// normalization of wire variants into canonical clinic types.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicboard/clinicboard/internal/clinic"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

const defaultTimeout = 15 * time.Second

// AppointmentFilter selects which appointments a list call returns.
type AppointmentFilter string

const (
	AppointmentsAll       AppointmentFilter = "all"
	AppointmentsScheduled AppointmentFilter = "scheduled"
)

// Config configures the clinic backend client.
type Config struct {
	BaseURL    string
	Token      string
	ActorID    string
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client talks to the clinic backend REST API.
type Client struct {
	baseURL    string
	token      string
	actorID    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a clinic backend client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("backend: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		token:      strings.TrimSpace(cfg.Token),
		actorID:    strings.TrimSpace(cfg.ActorID),
		httpClient: httpClient,
		logger:     logger.Component("backend"),
	}, nil
}

// get issues a GET and decodes the response body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("backend: build request %s: %w", path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s", ErrUnauthorized, method, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("backend: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

// listEnvelope is the common list response shape; some endpoints wrap the
// collection under "data", older ones return a bare array.
type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

func decodeList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("backend: decode list %s: %w", path, err)
		}
		return items, nil
	}
	var env listEnvelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("backend: decode list %s: %w", path, err)
	}
	return env.Data, nil
}

// ListAppointments returns appointments visible to the current actor.
func (c *Client) ListAppointments(ctx context.Context, filter AppointmentFilter) ([]clinic.Appointment, error) {
	q := url.Values{}
	if filter != "" && filter != AppointmentsAll {
		q.Set("status", string(filter))
	}
	if c.actorID != "" {
		q.Set("actor", c.actorID)
	}
	raws, err := decodeList[rawAppointment](ctx, c, "/api/appointments", q)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.Appointment, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizeAppointment(r))
	}
	return out, nil
}

// ListExaminations returns examinations for the current actor.
func (c *Client) ListExaminations(ctx context.Context) ([]clinic.Examination, error) {
	q := url.Values{}
	if c.actorID != "" {
		q.Set("actor", c.actorID)
	}
	raws, err := decodeList[rawExamination](ctx, c, "/api/examinations", q)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.Examination, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizeExamination(r))
	}
	return out, nil
}

// GetExamination fetches one examination with full line-item detail.
func (c *Client) GetExamination(ctx context.Context, id string) (clinic.Examination, error) {
	var raw rawExamination
	if err := c.get(ctx, "/api/examinations/"+url.PathEscape(id), nil, &raw); err != nil {
		return clinic.Examination{}, err
	}
	return normalizeExamination(raw), nil
}

// GetExaminationByAppointment is the reverse lookup: the examination recorded
// against a given appointment, ErrNotFound when none exists yet.
func (c *Client) GetExaminationByAppointment(ctx context.Context, appointmentID string) (clinic.Examination, error) {
	var raw rawExamination
	path := "/api/appointments/" + url.PathEscape(appointmentID) + "/examination"
	if err := c.get(ctx, path, nil, &raw); err != nil {
		return clinic.Examination{}, err
	}
	exam := normalizeExamination(raw)
	if exam.AppointmentID == "" {
		exam.AppointmentID = appointmentID
	}
	return exam, nil
}

// ListTreatmentPlans returns treatment plans for the current actor.
func (c *Client) ListTreatmentPlans(ctx context.Context) ([]clinic.TreatmentPlan, error) {
	q := url.Values{}
	if c.actorID != "" {
		q.Set("actor", c.actorID)
	}
	raws, err := decodeList[rawPlan](ctx, c, "/api/treatment-plans", q)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.TreatmentPlan, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizePlan(r))
	}
	return out, nil
}

// ListPhasesByPlan returns the phases of one treatment plan.
func (c *Client) ListPhasesByPlan(ctx context.Context, planID string) ([]clinic.TreatmentPhase, error) {
	path := "/api/treatment-plans/" + url.PathEscape(planID) + "/phases"
	raws, err := decodeList[rawPhase](ctx, c, path, nil)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.TreatmentPhase, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizePhase(r, planID))
	}
	return out, nil
}

// GetCostRecord fetches the cost record whose id is the billable entity's id.
func (c *Client) GetCostRecord(ctx context.Context, id string) (clinic.CostRecord, error) {
	var raw rawCost
	if err := c.get(ctx, "/api/costs/"+url.PathEscape(id), nil, &raw); err != nil {
		return clinic.CostRecord{}, err
	}
	cost := normalizeCost(raw)
	if cost.ID == "" {
		cost.ID = id
	}
	return cost, nil
}

// ListDoctors returns the doctor directory.
func (c *Client) ListDoctors(ctx context.Context) ([]clinic.Staff, error) {
	raws, err := decodeList[rawStaff](ctx, c, "/api/staff/doctors", nil)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.Staff, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizeStaff(r, "doctor"))
	}
	return out, nil
}

// ListNurses returns the nurse directory.
func (c *Client) ListNurses(ctx context.Context) ([]clinic.Staff, error) {
	raws, err := decodeList[rawStaff](ctx, c, "/api/staff/nurses", nil)
	if err != nil {
		return nil, err
	}
	out := make([]clinic.Staff, 0, len(raws))
	for _, r := range raws {
		out = append(out, normalizeStaff(r, "nurse"))
	}
	return out, nil
}

// GetStaff fetches one staff member by id.
func (c *Client) GetStaff(ctx context.Context, id string) (clinic.Staff, error) {
	var raw rawStaff
	if err := c.get(ctx, "/api/staff/"+url.PathEscape(id), nil, &raw); err != nil {
		return clinic.Staff{}, err
	}
	return normalizeStaff(raw, ""), nil
}

// MarkAppointmentNotified records that the reminder for an appointment was
// sent. Invalidates the appointments collection on success.
func (c *Client) MarkAppointmentNotified(ctx context.Context, appointmentID string) error {
	path := "/api/appointments/" + url.PathEscape(appointmentID) + "/notified"
	return c.do(ctx, http.MethodPut, path, nil, map[string]bool{"notificationSent": true}, nil)
}

// UpdatePayment sets the payment method and status on a cost record.
// Invalidates that cost record on success.
func (c *Client) UpdatePayment(ctx context.Context, costID, method, status string) error {
	path := "/api/costs/" + url.PathEscape(costID) + "/payment"
	body := map[string]string{"method": method, "status": status}
	return c.do(ctx, http.MethodPut, path, nil, body, nil)
}

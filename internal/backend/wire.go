package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// The clinic backend predates its own API conventions: ids arrive as strings
// or numbers, relations as camelCase, snake_case or nested objects, and
// timestamps as RFC3339 or epoch milliseconds. The flex types below absorb
// all of that so the rest of the engine only ever sees canonical structs.

// flexID decodes a JSON string or number into a string id.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

// flexTime decodes RFC3339 strings, "2006-01-02 15:04:05" strings, or epoch
// milliseconds. Zero time when absent or unparseable.
type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = flexTime(time.Time{})
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				*f = flexTime(t)
				return nil
			}
		}
		*f = flexTime(time.Time{})
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		*f = flexTime(time.Time{})
		return nil
	}
	*f = flexTime(time.UnixMilli(ms).UTC())
	return nil
}

func (f flexTime) Time() time.Time { return time.Time(f) }

// rawRef is a nested entity reference, e.g. {"id": 12, "name": "..."}.
type rawRef struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
}

type rawAppointment struct {
	ID               flexID    `json:"id"`
	PatientID        flexID    `json:"patientId"`
	PatientIDSnake   flexID    `json:"patient_id"`
	Patient          *rawRef   `json:"patient"`
	DoctorID         flexID    `json:"doctorId"`
	Doctor           *rawRef   `json:"doctor"`
	Date             flexTime  `json:"date"`
	ScheduledAt      flexTime  `json:"scheduledAt"`
	Status           string    `json:"status"`
	NotificationSent boolOrInt `json:"notificationSent"`
	IsSentNotify     boolOrInt `json:"isSentNotify"`
}

type rawLineItem struct {
	Name      string      `json:"name"`
	Quantity  json.Number `json:"quantity"`
	UnitPrice json.Number `json:"unitPrice"`
	Price     json.Number `json:"price"`
	Cost      json.Number `json:"cost"`
}

type rawExamination struct {
	ID                 flexID        `json:"id"`
	AppointmentID      flexID        `json:"appointmentId"`
	AppointmentIDSnake flexID        `json:"appointment_id"`
	Appointment        *rawRef       `json:"appointment"`
	PatientID          flexID        `json:"patientId"`
	PatientIDSnake     flexID        `json:"patient_id"`
	Patient            *rawRef       `json:"patient"`
	Diagnosis          string        `json:"diagnosis"`
	Treatment          string        `json:"treatment"`
	Services           []rawLineItem `json:"services"`
	Prescriptions      []rawLineItem `json:"prescriptions"`
	TotalCost          json.Number   `json:"totalCost"`
	Images             []string      `json:"images"`
	CreatedAt          flexTime      `json:"createdAt"`
}

type rawPlan struct {
	ID             flexID      `json:"id"`
	PatientID      flexID      `json:"patientId"`
	PatientIDSnake flexID      `json:"patient_id"`
	Patient        *rawRef     `json:"patient"`
	DoctorID       flexID      `json:"doctorId"`
	NurseID        flexID      `json:"nurseId"`
	Name           string      `json:"name"`
	Status         string      `json:"status"`
	TotalCost      json.Number `json:"totalCost"`
	CreatedAt      flexTime    `json:"createdAt"`
}

type rawPhase struct {
	ID            flexID        `json:"id"`
	PlanID        flexID        `json:"planId"`
	PlanIDSnake   flexID        `json:"plan_id"`
	PhaseNumber   json.Number   `json:"phaseNumber"`
	StartDate     flexTime      `json:"startDate"`
	EndDate       flexTime      `json:"endDate"`
	Status        string        `json:"status"`
	Cost          json.Number   `json:"cost"`
	Services      []rawLineItem `json:"services"`
	Prescriptions []rawLineItem `json:"prescriptions"`
	Images        []string      `json:"images"`
	PaymentStatus string        `json:"paymentStatus"`
}

type rawCost struct {
	ID        flexID      `json:"id"`
	TotalCost json.Number `json:"totalCost"`
	Amount    json.Number `json:"amount"`
	Status    string      `json:"status"`
	Method    string      `json:"method"`
	PaidAt    flexTime    `json:"paidAt"`
}

type rawStaff struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Phone    string `json:"phone"`
}

// boolOrInt decodes true/false or 0/1 notification flags.
type boolOrInt bool

func (b *boolOrInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}

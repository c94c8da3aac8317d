package model

import "time"

type GuestSource string

const (
	GuestSourceManual GuestSource = "manual"
	GuestSourceOrder  GuestSource = "order"
)

type Guest struct {
	ID          string      `json:"id,omitempty" bson:"_id,omitempty"`
	EventID     string      `json:"event_id" bson:"event_id" validate:"required,mongodb"`
	Name        string      `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Email       string      `json:"email" bson:"email" validate:"required,email,max=254"`
	Phone       string      `json:"phone,omitempty" bson:"phone,omitempty" validate:"omitempty,e164"`
	TicketType  string      `json:"ticket_type,omitempty" bson:"ticket_type,omitempty" validate:"max=60"`
	OrderID     string      `json:"order_id,omitempty" bson:"order_id,omitempty" validate:"max=100"`
	Source      GuestSource `json:"source" bson:"source" validate:"required,oneof=manual order"`
	CheckedIn   bool        `json:"checked_in" bson:"checked_in"`
	CheckedInAt *time.Time  `json:"checked_in_at,omitempty" bson:"checked_in_at,omitempty"`
	Notes       string      `json:"notes,omitempty" bson:"notes,omitempty" validate:"max=2000"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updated_at"`
}

// RegistrationLock serializes admissions to one event while its capacity or
// ticket quantities are checked.
type RegistrationLock struct {
	EventID   string    `bson:"_id"`
	Token     string    `bson:"token"`
	CreatedAt time.Time `bson:"created_at"`
}

type GuestUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	TicketType *string `json:"ticket_type,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type GuestImport struct {
	Guests []*Guest `json:"guests"`
}

type GuestImportResult struct {
	Created []*Guest           `json:"created"`
	Skipped []GuestImportError `json:"skipped"`
}

type GuestImportError struct {
	Index  int    `json:"index"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// OrderWebhook is the payload posted by the ticketing provider for a paid order.
type OrderWebhook struct {
	EventID   string          `json:"event_id" validate:"required,mongodb"`
	OrderID   string          `json:"order_id" validate:"required,max=100"`
	Attendees []OrderAttendee `json:"attendees" validate:"required,min=1,max=100,dive"`
}

type OrderAttendee struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty"`
	TicketType string `json:"ticket_type,omitempty"`
}

type CheckInStatus string

const (
	CheckInAll          CheckInStatus = "all"
	CheckInCheckedIn    CheckInStatus = "checked_in"
	CheckInNotCheckedIn CheckInStatus = "not_checked_in"
)

// GuestQuery is the parsed guest-list view state.
type GuestQuery struct {
	Search     string
	Status     CheckInStatus
	TicketType string
	Source     GuestSource
	Sort       string
	Page       int
	PageSize   int
}

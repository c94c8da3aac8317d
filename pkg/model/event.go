package model

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventCancelled EventStatus = "cancelled"
)

type TicketType struct {
	Name       string `json:"name" bson:"name" validate:"required,min=1,max=60"`
	PriceCents int64  `json:"price_cents" bson:"price_cents" validate:"min=0,max=1000000000000"`
	Quantity   int    `json:"quantity" bson:"quantity" validate:"min=0"`
}

type Event struct {
	ID             string       `json:"id,omitempty" bson:"_id,omitempty"`
	Title          string       `json:"title" bson:"title" validate:"required,min=2,max=150"`
	Description    string       `json:"description,omitempty" bson:"description" validate:"max=20000"`
	Venue          string       `json:"venue,omitempty" bson:"venue" validate:"max=200"`
	StartsAt       time.Time    `json:"starts_at" bson:"starts_at" validate:"required"`
	EndsAt         time.Time    `json:"ends_at" bson:"ends_at" validate:"required,gtfield=StartsAt"`
	TimeZone       string       `json:"time_zone" bson:"time_zone" validate:"required,timezone"`
	Capacity       int          `json:"capacity" bson:"capacity" validate:"min=0,max=1000000"`
	Status         EventStatus  `json:"status" bson:"status" validate:"required,oneof=draft published cancelled"`
	TicketTypes    []TicketType `json:"ticket_types" bson:"ticket_types" validate:"max=20,ticket_types,dive"`
	OwnerID        string       `json:"owner_id" bson:"owner_id" validate:"required,mongodb"`
	OrganizationID string       `json:"organization_id,omitempty" bson:"organization_id,omitempty" validate:"omitempty,mongodb"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`
}

// TicketType returns the ticket type with the given name, case-insensitively.
func (e *Event) TicketType(name string) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if equalFold(e.TicketTypes[i].Name, name) {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}

// HasLimits reports whether admitting a guest with ticketType is bounded by
// the event capacity or the ticket type's quantity.
func (e *Event) HasLimits(ticketType string) bool {
	if e.Capacity > 0 {
		return true
	}
	t, ok := e.TicketType(ticketType)
	return ok && t.Quantity > 0
}

type EventUpdate struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Venue       *string       `json:"venue,omitempty"`
	StartsAt    *time.Time    `json:"starts_at,omitempty"`
	EndsAt      *time.Time    `json:"ends_at,omitempty"`
	TimeZone    *string       `json:"time_zone,omitempty"`
	Capacity    *int          `json:"capacity,omitempty"`
	Status      *EventStatus  `json:"status,omitempty"`
	TicketTypes *[]TicketType `json:"ticket_types,omitempty"`
}

type EventFilter struct {
	Status EventStatus
	Limit  int
	Offset int64
}

package model

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type PromoCode struct {
	ID            string       `json:"id,omitempty" bson:"_id,omitempty"`
	EventID       string       `json:"event_id" bson:"event_id" validate:"required,mongodb"`
	Code          string       `json:"code" bson:"code" validate:"required,promo_code"`
	DiscountType  DiscountType `json:"discount_type" bson:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue int64        `json:"discount_value" bson:"discount_value" validate:"gt=0"`
	MaxUses       int64        `json:"max_uses" bson:"max_uses" validate:"min=0"`
	UsedCount     int64        `json:"used_count" bson:"used_count" validate:"min=0"`
	StartsAt      *time.Time   `json:"starts_at,omitempty" bson:"starts_at,omitempty"`
	EndsAt        *time.Time   `json:"ends_at,omitempty" bson:"ends_at,omitempty"`
	TicketTypes   []string     `json:"ticket_types,omitempty" bson:"ticket_types,omitempty" validate:"omitempty,max=20"`
	Active        bool         `json:"active" bson:"active"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" bson:"updated_at"`
}

// Unlimited reports whether the code has no usage cap.
func (p *PromoCode) Unlimited() bool {
	return p.MaxUses == 0
}

// PromoCodeCreate is the create payload. Active defaults to true when omitted.
type PromoCodeCreate struct {
	Code          string       `json:"code"`
	DiscountType  DiscountType `json:"discount_type"`
	DiscountValue int64        `json:"discount_value"`
	MaxUses       int64        `json:"max_uses"`
	StartsAt      *time.Time   `json:"starts_at,omitempty"`
	EndsAt        *time.Time   `json:"ends_at,omitempty"`
	TicketTypes   []string     `json:"ticket_types,omitempty"`
	Active        *bool        `json:"active,omitempty"`
}

type PromoCodeUpdate struct {
	Code          *string       `json:"code,omitempty"`
	DiscountType  *DiscountType `json:"discount_type,omitempty"`
	DiscountValue *int64        `json:"discount_value,omitempty"`
	MaxUses       *int64        `json:"max_uses,omitempty"`
	StartsAt      *time.Time    `json:"starts_at,omitempty"`
	EndsAt        *time.Time    `json:"ends_at,omitempty"`
	TicketTypes   *[]string     `json:"ticket_types,omitempty"`
	Active        *bool         `json:"active,omitempty"`
}

// RedemptionRequest asks to apply a code to one ticket. PriceCents defaults to
// the ticket type's price when zero.
type RedemptionRequest struct {
	Code       string `json:"code" validate:"required"`
	TicketType string `json:"ticket_type" validate:"required"`
	PriceCents int64  `json:"price_cents" validate:"min=0,max=1000000000000"`
}

type RedemptionResult struct {
	Code            string `json:"code"`
	DiscountCents   int64  `json:"discount_cents"`
	FinalPriceCents int64  `json:"final_price_cents"`
	RemainingUses   *int64 `json:"remaining_uses,omitempty"`
}

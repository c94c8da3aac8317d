package service

import (
	"strings"
	"time"

	promoerrors "gatherly/internal/promocodes/errors"
	"gatherly/pkg/model"
)

// Evaluate checks whether p can be applied at now to a ticket of ticketType
// priced priceCents and returns the discount in cents. It reads used_count as
// given; the atomic usage check happens on redemption.
func Evaluate(p *model.PromoCode, ticketType string, priceCents int64, now time.Time) (int64, error) {
	if !p.Active {
		return 0, promoerrors.ErrInactive
	}
	if p.StartsAt != nil && now.Before(*p.StartsAt) {
		return 0, promoerrors.ErrNotStarted
	}
	if p.EndsAt != nil && !now.Before(*p.EndsAt) {
		return 0, promoerrors.ErrExpired
	}
	if !p.Unlimited() && p.UsedCount >= p.MaxUses {
		return 0, promoerrors.ErrExhausted
	}
	if !appliesTo(p, ticketType) {
		return 0, promoerrors.ErrNotApplicable
	}
	return Discount(p, priceCents), nil
}

// Discount is the amount taken off priceCents, never more than the price.
// Percentages round half up to the cent.
func Discount(p *model.PromoCode, priceCents int64) int64 {
	if priceCents <= 0 {
		return 0
	}

	var d int64
	switch p.DiscountType {
	case model.DiscountPercentage:
		whole, rest := priceCents/100, priceCents%100
		d = whole*p.DiscountValue + (rest*p.DiscountValue+50)/100
	case model.DiscountFixed:
		d = p.DiscountValue
	}
	return min(max(d, 0), priceCents)
}

// appliesTo reports whether the code covers ticketType. An empty list covers
// every ticket type.
func appliesTo(p *model.PromoCode, ticketType string) bool {
	if len(p.TicketTypes) == 0 {
		return true
	}
	ticketType = strings.TrimSpace(ticketType)
	for _, t := range p.TicketTypes {
		if strings.EqualFold(t, ticketType) {
			return true
		}
	}
	return false
}

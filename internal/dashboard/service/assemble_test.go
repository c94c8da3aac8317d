package service

import (
	"reflect"
	"testing"

	"gatherly/internal/dashboard/repository"
	"gatherly/pkg/model"
)

func TestAssemble(t *testing.T) {
	e := &model.Event{
		ID:       "e1",
		TimeZone: "Europe/Berlin",
		Capacity: 10,
		TicketTypes: []model.TicketType{
			{Name: "VIP", Quantity: 2},
			{Name: "General"},
			{Name: "Student", Quantity: 5},
		},
	}
	counts := []repository.TicketTypeCount{
		{TicketType: "", Guests: 1},
		{TicketType: "General", Guests: 4, CheckedIn: 1},
		{TicketType: "Legacy", Guests: 1, CheckedIn: 1},
		{TicketType: "VIP", Guests: 2, CheckedIn: 2},
	}
	promo := model.PromoCodeStats{Codes: 2, Active: 1, Redemptions: 7}

	d := Assemble(e, counts, promo, nil)

	if d.Totals.Guests != 8 || d.Totals.CheckedIn != 4 {
		t.Errorf("totals = %+v", d.Totals)
	}
	if d.Totals.CheckInRate != 0.5 {
		t.Errorf("rate = %v", d.Totals.CheckInRate)
	}
	if d.Totals.CapacityRemaining == nil || *d.Totals.CapacityRemaining != 2 {
		t.Errorf("capacity remaining = %v", d.Totals.CapacityRemaining)
	}

	want := []model.TicketTypeStats{
		{Name: "VIP", Guests: 2, CheckedIn: 2, Quantity: 2, SoldOut: true},
		{Name: "General", Guests: 4, CheckedIn: 1},
		{Name: "Student", Quantity: 5},
		{Name: "Legacy", Guests: 1, CheckedIn: 1},
	}
	if !reflect.DeepEqual(d.TicketTypes, want) {
		t.Errorf("ticket types = %+v", d.TicketTypes)
	}
	if d.PromoCodes != promo {
		t.Errorf("promo = %+v", d.PromoCodes)
	}
	if d.Registrations == nil || len(d.Registrations) != 0 {
		t.Errorf("registrations = %v", d.Registrations)
	}
}

func TestAssemble_EmptyEvent(t *testing.T) {
	d := Assemble(&model.Event{ID: "e1"}, nil, model.PromoCodeStats{}, nil)

	if d.Totals.CheckInRate != 0 || d.Totals.CapacityRemaining != nil {
		t.Errorf("totals = %+v", d.Totals)
	}
	if d.TicketTypes == nil {
		t.Error("ticket types should be an empty list")
	}
}

func TestAssemble_OverCapacity(t *testing.T) {
	e := &model.Event{Capacity: 2}
	d := Assemble(e, []repository.TicketTypeCount{{Guests: 3}}, model.PromoCodeStats{}, nil)

	if d.Totals.CapacityRemaining == nil || *d.Totals.CapacityRemaining != 0 {
		t.Errorf("capacity remaining = %v", d.Totals.CapacityRemaining)
	}
}

func TestFillDays(t *testing.T) {
	days := []model.DailyRegistrations{
		{Day: "2026-02-27", Count: 3},
		{Day: "2026-03-02", Count: 1},
	}

	want := []model.DailyRegistrations{
		{Day: "2026-02-27", Count: 3},
		{Day: "2026-02-28", Count: 0},
		{Day: "2026-03-01", Count: 0},
		{Day: "2026-03-02", Count: 1},
	}
	if got := fillDays(days); !reflect.DeepEqual(got, want) {
		t.Errorf("fillDays() = %v", got)
	}
}

package model

type EventDashboard struct {
	EventID       string               `json:"event_id"`
	TimeZone      string               `json:"time_zone"`
	Totals        DashboardTotals      `json:"totals"`
	TicketTypes   []TicketTypeStats    `json:"ticket_types"`
	PromoCodes    PromoCodeStats       `json:"promo_codes"`
	Registrations []DailyRegistrations `json:"registrations"`
}

type DashboardTotals struct {
	Guests            int64   `json:"guests"`
	CheckedIn         int64   `json:"checked_in"`
	CheckInRate       float64 `json:"check_in_rate"`
	Capacity          int     `json:"capacity"`
	CapacityRemaining *int64  `json:"capacity_remaining,omitempty"`
}

type TicketTypeStats struct {
	Name      string `json:"name"`
	Guests    int64  `json:"guests"`
	CheckedIn int64  `json:"checked_in"`
	Quantity  int    `json:"quantity"`
	SoldOut   bool   `json:"sold_out"`
}

type PromoCodeStats struct {
	Codes       int64 `json:"codes"`
	Active      int64 `json:"active"`
	Redemptions int64 `json:"redemptions"`
}

type DailyRegistrations struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

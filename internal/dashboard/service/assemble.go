package service

import (
	"math"
	"sort"
	"time"

	"gatherly/internal/dashboard/repository"
	"gatherly/pkg/model"
)

const dayLayout = "2006-01-02"

// Assemble builds the dashboard for e from raw aggregation results. Ticket
// types follow the event's order; guests under names the event no longer
// defines are listed after them.
func Assemble(e *model.Event, counts []repository.TicketTypeCount, promo model.PromoCodeStats, days []model.DailyRegistrations) *model.EventDashboard {
	d := &model.EventDashboard{
		EventID:       e.ID,
		TimeZone:      e.TimeZone,
		TicketTypes:   []model.TicketTypeStats{},
		PromoCodes:    promo,
		Registrations: fillDays(days),
	}

	byName := make(map[string]repository.TicketTypeCount, len(counts))
	for _, c := range counts {
		byName[c.TicketType] = c
		d.Totals.Guests += c.Guests
		d.Totals.CheckedIn += c.CheckedIn
	}

	for _, t := range e.TicketTypes {
		c := byName[t.Name]
		delete(byName, t.Name)
		d.TicketTypes = append(d.TicketTypes, model.TicketTypeStats{
			Name:      t.Name,
			Guests:    c.Guests,
			CheckedIn: c.CheckedIn,
			Quantity:  t.Quantity,
			SoldOut:   t.Quantity > 0 && c.Guests >= int64(t.Quantity),
		})
	}

	var leftovers []string
	for name := range byName {
		if name != "" {
			leftovers = append(leftovers, name)
		}
	}
	sort.Strings(leftovers)
	for _, name := range leftovers {
		c := byName[name]
		d.TicketTypes = append(d.TicketTypes, model.TicketTypeStats{
			Name:      name,
			Guests:    c.Guests,
			CheckedIn: c.CheckedIn,
		})
	}

	if d.Totals.Guests > 0 {
		rate := float64(d.Totals.CheckedIn) / float64(d.Totals.Guests)
		d.Totals.CheckInRate = math.Round(rate*1000) / 1000
	}
	d.Totals.Capacity = e.Capacity
	if e.Capacity > 0 {
		remaining := max(0, int64(e.Capacity)-d.Totals.Guests)
		d.Totals.CapacityRemaining = &remaining
	}

	return d
}

// fillDays inserts zero-count days between the first and last registration
// so charts get a continuous series.
func fillDays(days []model.DailyRegistrations) []model.DailyRegistrations {
	if len(days) == 0 {
		return []model.DailyRegistrations{}
	}

	counts := make(map[string]int64, len(days))
	first, last := days[0].Day, days[0].Day
	for _, d := range days {
		counts[d.Day] += d.Count
		first = min(first, d.Day)
		last = max(last, d.Day)
	}

	start, err1 := time.Parse(dayLayout, first)
	end, err2 := time.Parse(dayLayout, last)
	if err1 != nil || err2 != nil {
		return days
	}

	series := []model.DailyRegistrations{}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		series = append(series, model.DailyRegistrations{Day: key, Count: counts[key]})
	}
	return series
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"gatherly/internal/access"
	guesterrors "gatherly/internal/guests/errors"
	"gatherly/internal/testutil"
	"gatherly/pkg/activity"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
)

type memGuests struct {
	mu sync.Mutex
	m  map[string]*model.Guest
}

func newMemGuests() *memGuests {
	return &memGuests{m: map[string]*model.Guest{}}
}

func (r *memGuests) Create(_ context.Context, g *model.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.m {
		if other.EventID == g.EventID && other.Email == g.Email {
			return fmt.Errorf("%w: %s", guesterrors.ErrDuplicateEmail, g.Email)
		}
	}
	g.ID = testutil.NewID()
	cp := *g
	r.m[g.ID] = &cp
	return nil
}

func (r *memGuests) FindByID(_ context.Context, eventID, id string) (*model.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.m[id]
	if !ok || g.EventID != eventID {
		return nil, fmt.Errorf("%w: %s", guesterrors.ErrNotFound, id)
	}
	cp := *g
	return &cp, nil
}

func (r *memGuests) FindByEmail(_ context.Context, eventID, email string) (*model.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.m {
		if g.EventID == eventID && g.Email == email {
			cp := *g
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", guesterrors.ErrNotFound, email)
}

func (r *memGuests) matching(eventID string, q model.GuestQuery) []*model.Guest {
	search := strings.ToLower(q.Search)
	var out []*model.Guest
	for _, g := range r.m {
		if g.EventID != eventID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(g.Name), search) &&
			!strings.Contains(g.Email, search) &&
			!strings.Contains(strings.ToLower(g.OrderID), search) {
			continue
		}
		if (q.Status == model.CheckInCheckedIn && !g.CheckedIn) || (q.Status == model.CheckInNotCheckedIn && g.CheckedIn) {
			continue
		}
		if (q.TicketType != "" && g.TicketType != q.TicketType) || (q.Source != "" && g.Source != q.Source) {
			continue
		}
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memGuests) Find(_ context.Context, eventID string, q model.GuestQuery, skip int64, limit int) ([]*model.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.matching(eventID, q)
	if skip >= int64(len(all)) {
		return []*model.Guest{}, nil
	}
	all = all[skip:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *memGuests) Count(_ context.Context, eventID string, q model.GuestQuery) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.matching(eventID, q))), nil
}

func (r *memGuests) CountByTicketType(_ context.Context, eventID, ticketType string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, g := range r.m {
		if g.EventID == eventID && (ticketType == "" || g.TicketType == ticketType) {
			n++
		}
	}
	return n, nil
}

func (r *memGuests) Update(_ context.Context, g *model.Guest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[g.ID]; !ok {
		return fmt.Errorf("%w: %s", guesterrors.ErrNotFound, g.ID)
	}
	for id, other := range r.m {
		if id != g.ID && other.EventID == g.EventID && other.Email == g.Email {
			return fmt.Errorf("%w: %s", guesterrors.ErrDuplicateEmail, g.Email)
		}
	}
	cp := *g
	r.m[g.ID] = &cp
	return nil
}

func (r *memGuests) SetCheckIn(_ context.Context, eventID, id string, checkedIn bool, at time.Time) (*model.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.m[id]
	if !ok || g.EventID != eventID {
		return nil, fmt.Errorf("%w: %s", guesterrors.ErrNotFound, id)
	}
	if g.CheckedIn == checkedIn {
		return nil, fmt.Errorf("%w: %s", guesterrors.ErrCheckInUnchanged, id)
	}
	g.CheckedIn = checkedIn
	g.CheckedInAt = nil
	if checkedIn {
		g.CheckedInAt = &at
	}
	cp := *g
	return &cp, nil
}

func (r *memGuests) Delete(_ context.Context, eventID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.m[id]; !ok || g.EventID != eventID {
		return fmt.Errorf("%w: %s", guesterrors.ErrNotFound, id)
	}
	delete(r.m, id)
	return nil
}

func (r *memGuests) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, g := range r.m {
		if g.EventID == eventID {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

// memLocks mimics the unique _id and release token of the registration lock
// collection.
type memLocks struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
	err      error
}

func newMemLocks() *memLocks {
	return &memLocks{held: map[string]string{}}
}

func (l *memLocks) Acquire(_ context.Context, eventID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", l.err
	}
	if _, ok := l.held[eventID]; ok {
		return "", fmt.Errorf("%w: %s", guesterrors.ErrRegistrationLocked, eventID)
	}
	l.acquired++
	token := fmt.Sprintf("t%d", l.acquired)
	l.held[eventID] = token
	return token, nil
}

func (l *memLocks) Release(_ context.Context, eventID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[eventID] == token {
		delete(l.held, eventID)
	}
	return nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	activities []activity.Activity
}

func (p *recordingPublisher) Publish(_ context.Context, a activity.Activity) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activities = append(p.activities, a)
	return nil
}

var (
	ownerID   = testutil.NewID()
	managerID = testutil.NewID()
	viewerID  = testutil.NewID()
)

type fixture struct {
	svc    *guestService
	repo   *memGuests
	locks  *memLocks
	events *testutil.Events
	event  *model.Event
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testutil.Config()
	orgs := testutil.NewOrganizations()
	roles := testutil.NewRoles()
	events := testutil.NewEvents()
	org := testutil.SeedOrg(orgs, roles, ownerID, map[string]string{
		managerID: model.RoleManager,
		viewerID:  model.RoleViewer,
	})

	event := events.Put(&model.Event{
		Title:          "Launch",
		OwnerID:        ownerID,
		OrganizationID: org.ID,
		Status:         model.EventPublished,
		TimeZone:       "UTC",
		Capacity:       5,
		TicketTypes: []model.TicketType{
			{Name: "General", PriceCents: 2000},
			{Name: "VIP", PriceCents: 8000, Quantity: 1},
		},
	})

	f := &fixture{
		repo:   newMemGuests(),
		locks:  newMemLocks(),
		events: events,
		event:  event,
		pub:    &recordingPublisher{},
	}
	svc := NewGuestService(f.repo, f.locks, events, access.NewAuthorizer(orgs, roles, events, cfg.Log), f.pub, cfg).(*guestService)
	svc.now = func() time.Time { return time.Date(2026, 6, 1, 18, 30, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func (f *fixture) add(t *testing.T, name, email, ticketType string) *model.Guest {
	t.Helper()
	g := &model.Guest{Name: name, Email: email, TicketType: ticketType}
	if err := f.svc.Add(context.Background(), managerID, f.event.ID, g); err != nil {
		t.Fatalf("Add(%s) error = %v", email, err)
	}
	return g
}

func TestAdd_Normalizes(t *testing.T) {
	f := newFixture(t)
	g := &model.Guest{
		Name:       "  Ada   Lovelace ",
		Email:      " Ada@Example.COM ",
		Phone:      "+1 650 253 0000",
		TicketType: "vip",
		Notes:      "<b>front row</b>",
		CheckedIn:  true,
	}
	if err := f.svc.Add(context.Background(), managerID, f.event.ID, g); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if g.Email != "ada@example.com" {
		t.Errorf("email = %q", g.Email)
	}
	if g.Phone != "+16502530000" {
		t.Errorf("phone = %q", g.Phone)
	}
	if g.TicketType != "VIP" {
		t.Errorf("ticket type = %q", g.TicketType)
	}
	if g.Notes != "front row" {
		t.Errorf("notes = %q", g.Notes)
	}
	if g.CheckedIn || g.Source != model.GuestSourceManual {
		t.Errorf("checked_in = %v, source = %q", g.CheckedIn, g.Source)
	}
	if len(f.pub.activities) != 1 || f.pub.activities[0].Type != activity.GuestAdded {
		t.Fatalf("activities = %v", f.pub.activities)
	}
	if f.pub.activities[0].Data["owner_id"] != ownerID {
		t.Errorf("activity data = %v", f.pub.activities[0].Data)
	}
}

func TestAdd_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		actor    string
		guest    model.Guest
		wantCode string
	}{
		{"viewer", viewerID, model.Guest{Name: "A", Email: "a@example.com", TicketType: "General"}, apperrors.CodeForbidden},
		{"missing ticket type", managerID, model.Guest{Name: "A", Email: "a@example.com"}, apperrors.CodeValidation},
		{"unknown ticket type", managerID, model.Guest{Name: "A", Email: "a@example.com", TicketType: "Backstage"}, apperrors.CodeValidation},
		{"bad email", managerID, model.Guest{Name: "A", Email: "nope", TicketType: "General"}, apperrors.CodeValidation},
		{"bad phone", managerID, model.Guest{Name: "A", Email: "a@example.com", Phone: "12", TicketType: "General"}, apperrors.CodeValidation},
		{"missing name", managerID, model.Guest{Email: "a@example.com", TicketType: "General"}, apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.svc.Add(context.Background(), tt.actor, f.event.ID, &tt.guest)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
		})
	}
}

func TestAdd_Limits(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Ada", "ada@example.com", "VIP")

	err := f.svc.Add(context.Background(), managerID, f.event.ID, &model.Guest{Name: "Grace", Email: "grace@example.com", TicketType: "VIP"})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("sold out ticket type: expected conflict, got %v", err)
	}

	err = f.svc.Add(context.Background(), managerID, f.event.ID, &model.Guest{Name: "Ada", Email: "ADA@example.com", TicketType: "General"})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}

	for i := range 4 {
		f.add(t, "Guest", fmt.Sprintf("g%d@example.com", i), "General")
	}
	err = f.svc.Add(context.Background(), managerID, f.event.ID, &model.Guest{Name: "Late", Email: "late@example.com", TicketType: "General"})
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("capacity: expected conflict, got %v", err)
	}
}

func TestImport_SkipsBadRows(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Ada", "ada@example.com", "General")

	result, err := f.svc.Import(context.Background(), managerID, f.event.ID, &model.GuestImport{
		Guests: []*model.Guest{
			{Name: "Grace", Email: "grace@example.com", TicketType: "General"},
			{Name: "Ada again", Email: "ada@example.com", TicketType: "General"},
			nil,
			{Name: "No ticket", Email: "none@example.com"},
			{Name: "Linus", Email: "linus@example.com", TicketType: "vip"},
		},
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if len(result.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(result.Created))
	}
	if len(result.Skipped) != 3 {
		t.Fatalf("skipped = %v", result.Skipped)
	}
	wantIdx := []int{1, 2, 3}
	for i, s := range result.Skipped {
		if s.Index != wantIdx[i] || s.Reason == "" {
			t.Errorf("skipped[%d] = %+v", i, s)
		}
	}
	if result.Skipped[2].Reason != "ticket_type is required" {
		t.Errorf("reason = %q", result.Skipped[2].Reason)
	}

	last := f.pub.activities[len(f.pub.activities)-1]
	if last.Type != activity.GuestsImported || last.Data["count"] != "2" {
		t.Errorf("activity = %+v", last)
	}
}

func TestImport_Bounds(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Import(context.Background(), managerID, f.event.ID, &model.GuestImport{}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("empty import: expected validation, got %v", err)
	}

	rows := make([]*model.Guest, MaxImportRows+1)
	if _, err := f.svc.Import(context.Background(), managerID, f.event.ID, &model.GuestImport{Guests: rows}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("oversized import: expected validation, got %v", err)
	}
}

func TestList_SearchAndPaging(t *testing.T) {
	f := newFixture(t)
	f.event.Capacity = 0
	f.add(t, "charlie", "c@example.com", "General")
	f.add(t, "Alice", "a@example.com", "General")
	f.add(t, "bob", "b@example.com", "VIP")

	guests, total, err := f.svc.List(context.Background(), managerID, f.event.ID, model.GuestQuery{PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(guests) != 2 {
		t.Fatalf("total = %d, len = %d", total, len(guests))
	}
	if guests[0].Name != "Alice" || guests[1].Name != "bob" {
		t.Errorf("order = %s, %s", guests[0].Name, guests[1].Name)
	}

	guests, total, err = f.svc.List(context.Background(), managerID, f.event.ID, model.GuestQuery{Page: 9, PageSize: 2})
	if err != nil {
		t.Fatalf("List() past end error = %v", err)
	}
	if total != 3 || len(guests) != 0 || guests == nil {
		t.Errorf("past end: total = %d, guests = %v", total, guests)
	}

	guests, total, err = f.svc.List(context.Background(), managerID, f.event.ID, model.GuestQuery{Page: 1<<62 + 2, PageSize: 2})
	if err != nil {
		t.Fatalf("List() huge page error = %v", err)
	}
	if total != 3 || len(guests) != 0 {
		t.Errorf("huge page: total = %d, guests = %v", total, guests)
	}

	guests, total, err = f.svc.List(context.Background(), managerID, f.event.ID, model.GuestQuery{Search: " ALI ", TicketType: "general"})
	if err != nil {
		t.Fatalf("List() search error = %v", err)
	}
	if total != 1 || guests[0].Name != "Alice" {
		t.Errorf("search = %d %v", total, guests)
	}
}

func TestList_InvalidQuery(t *testing.T) {
	tests := []struct {
		name string
		q    model.GuestQuery
	}{
		{"status", model.GuestQuery{Status: "maybe"}},
		{"source", model.GuestQuery{Source: "import"}},
		{"sort", model.GuestQuery{Sort: "email"}},
		{"search too long", model.GuestQuery{Search: strings.Repeat("x", 101)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, _, err := f.svc.List(context.Background(), managerID, f.event.ID, tt.q)
			if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestCheckIn(t *testing.T) {
	f := newFixture(t)
	g := f.add(t, "Ada", "ada@example.com", "General")

	checked, err := f.svc.CheckIn(context.Background(), managerID, f.event.ID, g.ID)
	if err != nil {
		t.Fatalf("CheckIn() error = %v", err)
	}
	if !checked.CheckedIn || checked.CheckedInAt == nil {
		t.Fatalf("guest = %+v", checked)
	}

	if _, err := f.svc.CheckIn(context.Background(), managerID, f.event.ID, g.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second check-in: expected conflict, got %v", err)
	}

	out, err := f.svc.CheckOut(context.Background(), managerID, f.event.ID, g.ID)
	if err != nil {
		t.Fatalf("CheckOut() error = %v", err)
	}
	if out.CheckedIn || out.CheckedInAt != nil {
		t.Errorf("guest = %+v", out)
	}
	if _, err := f.svc.CheckOut(context.Background(), managerID, f.event.ID, g.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second check-out: expected conflict, got %v", err)
	}

	if _, err := f.svc.CheckIn(context.Background(), managerID, f.event.ID, testutil.NewID()); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown guest: expected not found, got %v", err)
	}
}

func TestCheckIn_CancelledEvent(t *testing.T) {
	f := newFixture(t)
	g := f.add(t, "Ada", "ada@example.com", "General")
	f.event.Status = model.EventCancelled

	if _, err := f.svc.CheckIn(context.Background(), managerID, f.event.ID, g.ID); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Ada", "ada@example.com", "General")
	g := f.add(t, "Grace", "grace@example.com", "General")

	email := "ADA@example.com"
	if _, err := f.svc.Update(context.Background(), managerID, f.event.ID, g.ID, &model.GuestUpdate{Email: &email}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("duplicate email: expected conflict, got %v", err)
	}

	name := "Grace Hopper"
	updated, err := f.svc.Update(context.Background(), managerID, f.event.ID, g.ID, &model.GuestUpdate{Name: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != name || updated.Email != "grace@example.com" {
		t.Errorf("guest = %+v", updated)
	}
}

func TestUpdate_TicketTypeChangeTakesLock(t *testing.T) {
	f := newFixture(t)
	g := f.add(t, "Grace", "grace@example.com", "General")
	vip := "VIP"

	f.locks.held[f.event.ID] = "other"
	if _, err := f.svc.Update(context.Background(), managerID, f.event.ID, g.ID, &model.GuestUpdate{TicketType: &vip}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("contended: expected conflict, got %v", err)
	}
	if stored := f.repo.m[g.ID]; stored.TicketType != "General" {
		t.Errorf("ticket type changed despite contention: %s", stored.TicketType)
	}

	delete(f.locks.held, f.event.ID)
	before := f.locks.acquired
	updated, err := f.svc.Update(context.Background(), managerID, f.event.ID, g.ID, &model.GuestUpdate{TicketType: &vip})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.TicketType != "VIP" {
		t.Errorf("ticket type = %s", updated.TicketType)
	}
	if f.locks.acquired != before+1 || len(f.locks.held) != 0 {
		t.Errorf("acquired = %d (was %d), held = %v", f.locks.acquired, before, f.locks.held)
	}
}

func TestRecordOrder_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.add(t, "Ada", "ada@example.com", "General")
	order := &model.OrderWebhook{
		EventID: f.event.ID,
		OrderID: "ord_1",
		Attendees: []model.OrderAttendee{
			{Name: "Grace", Email: "Grace@example.com", TicketType: "General"},
			{Name: "Ada", Email: "ada@example.com", TicketType: "General"},
		},
	}

	first, err := f.svc.RecordOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("RecordOrder() error = %v", err)
	}
	if len(first.Created) != 1 || first.Created[0].Source != model.GuestSourceOrder || first.Created[0].OrderID != "ord_1" {
		t.Fatalf("created = %+v", first.Created)
	}
	if len(first.Skipped) != 1 || first.Skipped[0].Reason != "email already registered for this event" {
		t.Fatalf("skipped = %+v", first.Skipped)
	}

	second, err := f.svc.RecordOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	if len(second.Created) != 0 || second.Skipped[0].Reason != "already recorded" {
		t.Errorf("replay = %+v", second)
	}

	var orderActivities int
	for _, a := range f.pub.activities {
		if a.Type == activity.GuestOrderAdded {
			orderActivities++
			if a.ActorID != "" {
				t.Errorf("actor = %q", a.ActorID)
			}
		}
	}
	if orderActivities != 1 {
		t.Errorf("order activities = %d, want 1", orderActivities)
	}
}

func TestRecordOrder_Rejections(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.RecordOrder(context.Background(), &model.OrderWebhook{EventID: f.event.ID, OrderID: "ord_1"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("no attendees: expected validation, got %v", err)
	}

	attendees := []model.OrderAttendee{{Name: "Grace", Email: "grace@example.com", TicketType: "General"}}
	if _, err := f.svc.RecordOrder(context.Background(), &model.OrderWebhook{EventID: testutil.NewID(), OrderID: "ord_1", Attendees: attendees}); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("unknown event: expected not found, got %v", err)
	}

	f.event.Status = model.EventCancelled
	if _, err := f.svc.RecordOrder(context.Background(), &model.OrderWebhook{EventID: f.event.ID, OrderID: "ord_1", Attendees: attendees}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("cancelled event: expected conflict, got %v", err)
	}
}

func TestAdd_RegistrationLock(t *testing.T) {
	t.Run("released after admission", func(t *testing.T) {
		f := newFixture(t)
		f.add(t, "Ada", "ada@example.com", "General")
		f.add(t, "Grace", "grace@example.com", "VIP")

		if f.locks.acquired != 2 {
			t.Errorf("acquired = %d, want 2", f.locks.acquired)
		}
		if len(f.locks.held) != 0 {
			t.Errorf("locks still held: %v", f.locks.held)
		}
	})

	t.Run("skipped without limits", func(t *testing.T) {
		f := newFixture(t)
		f.event.Capacity = 0
		f.add(t, "Ada", "ada@example.com", "General")

		if f.locks.acquired != 0 {
			t.Errorf("acquired = %d, want 0", f.locks.acquired)
		}
	})

	t.Run("contended", func(t *testing.T) {
		f := newFixture(t)
		f.locks.held[f.event.ID] = "other"

		err := f.svc.Add(context.Background(), managerID, f.event.ID,
			&model.Guest{Name: "Ada", Email: "ada@example.com", TicketType: "General"})
		if !apperrors.HasCode(err, apperrors.CodeConflict) {
			t.Fatalf("Add() error = %v, want Conflict", err)
		}
		if len(f.repo.m) != 0 {
			t.Errorf("guest stored despite contention")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.locks.err = fmt.Errorf("connection reset")

		err := f.svc.Add(context.Background(), managerID, f.event.ID,
			&model.Guest{Name: "Ada", Email: "ada@example.com", TicketType: "General"})
		if !apperrors.HasCode(err, apperrors.CodeInternal) {
			t.Fatalf("Add() error = %v, want Internal", err)
		}
	})
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gatherly/internal/access"
	"gatherly/internal/testutil"
	"gatherly/pkg/activity"
	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/model"
)

type recordingPublisher struct {
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, a activity.Activity) error {
	p.types = append(p.types, a.Type)
	return nil
}

type fakeCascade struct {
	deleted []string
	err     error
}

func (c *fakeCascade) DeleteByEvent(_ context.Context, eventID string) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.deleted = append(c.deleted, eventID)
	return 3, nil
}

var (
	ownerID   = testutil.NewID()
	managerID = testutil.NewID()
	viewerID  = testutil.NewID()
	outsider  = testutil.NewID()
)

type fixture struct {
	svc     EventService
	events  *testutil.Events
	org     *testutil.Org
	pub     *recordingPublisher
	cascade *fakeCascade
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

	f := &fixture{
		events:  events,
		org:     org,
		pub:     &recordingPublisher{},
		cascade: &fakeCascade{},
	}
	authz := access.NewAuthorizer(orgs, roles, events, cfg.Log)
	f.svc = NewEventService(events, authz, f.pub, cfg, f.cascade)
	return f
}

func validEvent() *model.Event {
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	return &model.Event{
		Title:    "  Summer   Launch ",
		StartsAt: start,
		EndsAt:   start.Add(3 * time.Hour),
		Capacity: 100,
		TicketTypes: []model.TicketType{
			{Name: " General ", PriceCents: 2500, Quantity: 80},
			{Name: "VIP", PriceCents: 9000, Quantity: 20},
		},
	}
}

func TestCreate_AppliesDefaultsAndSanitizes(t *testing.T) {
	f := newFixture(t)
	e := validEvent()
	e.Description = `<p>Join us</p><script>alert(1)</script>`

	if err := f.svc.Create(context.Background(), outsider, e); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if e.ID == "" || e.OwnerID != outsider {
		t.Errorf("id/owner not set: %+v", e)
	}
	if e.Title != "Summer Launch" {
		t.Errorf("title = %q", e.Title)
	}
	if e.TimeZone != "UTC" || e.Status != model.EventDraft {
		t.Errorf("defaults: tz=%q status=%q", e.TimeZone, e.Status)
	}
	if strings.Contains(e.Description, "script") || !strings.Contains(e.Description, "<p>Join us</p>") {
		t.Errorf("description = %q", e.Description)
	}
	if e.TicketTypes[0].Name != "General" {
		t.Errorf("ticket type name = %q", e.TicketTypes[0].Name)
	}
	if len(f.pub.types) != 1 || f.pub.types[0] != activity.EventCreated {
		t.Errorf("activity = %v", f.pub.types)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *model.Event)
	}{
		{"ends before start", func(e *model.Event) { e.EndsAt = e.StartsAt.Add(-time.Hour) }},
		{"duplicate ticket types", func(e *model.Event) { e.TicketTypes[1].Name = "general" }},
		{"unknown timezone", func(e *model.Event) { e.TimeZone = "Mars/Olympus" }},
		{"bad status", func(e *model.Event) { e.Status = "archived" }},
		{"missing title", func(e *model.Event) { e.Title = "  " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := validEvent()
			tt.mutate(e)

			err := f.svc.Create(context.Background(), ownerID, e)
			if !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if len(f.events.M) != 0 {
				t.Error("invalid event should not be stored")
			}
		})
	}
}

func TestCreate_OrganizationRequiresEventsManage(t *testing.T) {
	f := newFixture(t)

	e := validEvent()
	e.OrganizationID = f.org.ID
	if err := f.svc.Create(context.Background(), viewerID, e); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("viewer: expected FORBIDDEN, got %v", err)
	}

	e = validEvent()
	e.OrganizationID = f.org.ID
	if err := f.svc.Create(context.Background(), managerID, e); err != nil {
		t.Fatalf("manager: %v", err)
	}
}

func TestAccess(t *testing.T) {
	f := newFixture(t)
	orgEvent := validEvent()
	orgEvent.OrganizationID = f.org.ID
	if err := f.svc.Create(context.Background(), managerID, orgEvent); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		userID string
		id     string
		read   string
		write  string
	}{
		{name: "event owner", userID: managerID, id: orgEvent.ID},
		{name: "org owner", userID: ownerID, id: orgEvent.ID},
		{name: "viewer reads only", userID: viewerID, id: orgEvent.ID, write: apperrors.CodeForbidden},
		{name: "outsider", userID: outsider, id: orgEvent.ID, read: apperrors.CodeForbidden, write: apperrors.CodeForbidden},
		{name: "missing", userID: ownerID, id: testutil.NewID(), read: apperrors.CodeNotFound, write: apperrors.CodeNotFound},
		{name: "malformed id", userID: ownerID, id: "nope", read: apperrors.CodeInvalidInput, write: apperrors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Get(context.Background(), tt.userID, tt.id)
			checkCode(t, "Get", err, tt.read)

			venue := "Main hall"
			_, err = f.svc.Update(context.Background(), tt.userID, tt.id, &model.EventUpdate{Venue: &venue})
			checkCode(t, "Update", err, tt.write)
		})
	}
}

func checkCode(t *testing.T, op string, err error, want string) {
	t.Helper()
	if want == "" {
		if err != nil {
			t.Errorf("%s: unexpected error %v", op, err)
		}
		return
	}
	if !apperrors.HasCode(err, want) {
		t.Errorf("%s: expected %s, got %v", op, want, err)
	}
}

func TestUpdate_StatusTransitions(t *testing.T) {
	f := newFixture(t)
	e := validEvent()
	if err := f.svc.Create(context.Background(), ownerID, e); err != nil {
		t.Fatal(err)
	}

	published := model.EventPublished
	updated, err := f.svc.Update(context.Background(), ownerID, e.ID, &model.EventUpdate{Status: &published})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if updated.Status != model.EventPublished {
		t.Errorf("status = %s", updated.Status)
	}
	want := []string{activity.EventCreated, activity.EventUpdated, activity.EventPublished}
	if strings.Join(f.pub.types, ",") != strings.Join(want, ",") {
		t.Errorf("activity = %v, want %v", f.pub.types, want)
	}

	cancelled := model.EventCancelled
	if _, err := f.svc.Update(context.Background(), ownerID, e.ID, &model.EventUpdate{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.svc.Update(context.Background(), ownerID, e.ID, &model.EventUpdate{Status: &published}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("reopen: expected CONFLICT, got %v", err)
	}
}

func TestUpdate_KeepsEndAfterStart(t *testing.T) {
	f := newFixture(t)
	e := validEvent()
	if err := f.svc.Create(context.Background(), ownerID, e); err != nil {
		t.Fatal(err)
	}

	later := e.EndsAt.Add(time.Hour)
	if _, err := f.svc.Update(context.Background(), ownerID, e.ID, &model.EventUpdate{StartsAt: &later}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR, got %v", err)
	}
	stored, _ := f.events.FindByID(context.Background(), e.ID)
	if !stored.StartsAt.Equal(e.StartsAt) {
		t.Error("rejected update must not be stored")
	}
}

func TestList_Visibility(t *testing.T) {
	f := newFixture(t)
	mine := validEvent()
	if err := f.svc.Create(context.Background(), viewerID, mine); err != nil {
		t.Fatal(err)
	}
	orgEvent := validEvent()
	orgEvent.OrganizationID = f.org.ID
	orgEvent.StartsAt = orgEvent.StartsAt.Add(24 * time.Hour)
	orgEvent.EndsAt = orgEvent.EndsAt.Add(24 * time.Hour)
	if err := f.svc.Create(context.Background(), managerID, orgEvent); err != nil {
		t.Fatal(err)
	}
	private := validEvent()
	if err := f.svc.Create(context.Background(), outsider, private); err != nil {
		t.Fatal(err)
	}

	events, total, err := f.svc.List(context.Background(), viewerID, model.EventFilter{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(events) != 2 {
		t.Fatalf("expected 2 visible events, got %d (total %d)", len(events), total)
	}
	if events[0].ID != mine.ID || events[1].ID != orgEvent.ID {
		t.Errorf("events not ordered by start time")
	}

	events, total, _ = f.svc.List(context.Background(), outsider, model.EventFilter{Limit: 1, Offset: 5})
	if total != 1 || len(events) != 0 {
		t.Errorf("offset past end: got %d events, total %d", len(events), total)
	}

	if _, _, err := f.svc.List(context.Background(), viewerID, model.EventFilter{Status: "archived"}); !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
		t.Errorf("bad status filter: expected INVALID_INPUT, got %v", err)
	}
}

func TestDelete_Cascades(t *testing.T) {
	f := newFixture(t)
	e := validEvent()
	if err := f.svc.Create(context.Background(), ownerID, e); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Delete(context.Background(), ownerID, e.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(f.cascade.deleted) != 1 || f.cascade.deleted[0] != e.ID {
		t.Errorf("cascade = %v", f.cascade.deleted)
	}
	if _, ok := f.events.M[e.ID]; ok {
		t.Error("event should be gone")
	}
}

func TestDelete_CascadeFailureKeepsEvent(t *testing.T) {
	f := newFixture(t)
	e := validEvent()
	if err := f.svc.Create(context.Background(), ownerID, e); err != nil {
		t.Fatal(err)
	}
	f.cascade.err = errors.New("write conflict")

	if err := f.svc.Delete(context.Background(), ownerID, e.ID); !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	if _, ok := f.events.M[e.ID]; !ok {
		t.Error("event should survive a failed cascade")
	}
}

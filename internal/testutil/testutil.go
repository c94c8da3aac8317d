// Package testutil holds in-memory stores and fixtures shared by service
// tests.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	eventserrors "gatherly/internal/events/errors"
	orgerrors "gatherly/internal/organizations/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/logger"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func Config() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  5 * time.Second,
		InvitationTTL: 7 * 24 * time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
}

func NewID() string {
	return primitive.NewObjectID().Hex()
}

// Organizations implements the organization repository in memory.
type Organizations struct {
	mu sync.Mutex
	M  map[string]*model.Organization
}

func NewOrganizations() *Organizations {
	return &Organizations{M: map[string]*model.Organization{}}
}

func cloneOrg(org *model.Organization) *model.Organization {
	cp := *org
	cp.Members = append([]model.Member(nil), org.Members...)
	return &cp
}

func (o *Organizations) Create(_ context.Context, org *model.Organization) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	org.ID = NewID()
	o.M[org.ID] = cloneOrg(org)
	return nil
}

func (o *Organizations) FindByID(_ context.Context, id string) (*model.Organization, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	org, ok := o.M[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
	}
	return cloneOrg(org), nil
}

func (o *Organizations) FindByMember(_ context.Context, userID string) ([]*model.Organization, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*model.Organization
	for _, org := range o.M {
		if _, ok := org.Member(userID); ok {
			out = append(out, cloneOrg(org))
		}
	}
	return out, nil
}

func (o *Organizations) UpdateName(_ context.Context, id, name, slug string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	org, ok := o.M[id]
	if !ok {
		return fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
	}
	org.Name, org.Slug = name, slug
	return nil
}

func (o *Organizations) Delete(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.M, id)
	return nil
}

func (o *Organizations) AddMember(_ context.Context, orgID string, m model.Member) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	org, ok := o.M[orgID]
	if !ok {
		return fmt.Errorf("%w: %s", orgerrors.ErrNotFound, orgID)
	}
	if _, exists := org.Member(m.UserID); exists {
		return fmt.Errorf("%w: %s", orgerrors.ErrDuplicateMember, m.UserID)
	}
	org.Members = append(org.Members, m)
	return nil
}

func (o *Organizations) UpdateMember(_ context.Context, orgID string, m model.Member) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	existing, ok := o.M[orgID].Member(m.UserID)
	if !ok {
		return fmt.Errorf("%w: %s", orgerrors.ErrMemberNotFound, m.UserID)
	}
	*existing = m
	return nil
}

func (o *Organizations) RemoveMember(_ context.Context, orgID, userID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	org := o.M[orgID]
	for i, m := range org.Members {
		if m.UserID == userID {
			org.Members = append(org.Members[:i], org.Members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", orgerrors.ErrMemberNotFound, userID)
}

func (o *Organizations) CountMembersWithRole(_ context.Context, orgID, roleID string) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var n int64
	for _, m := range o.M[orgID].Members {
		if m.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

func (o *Organizations) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// Roles implements the role repository in memory.
type Roles struct {
	mu sync.Mutex
	M  map[string]*model.Role
}

func NewRoles() *Roles {
	return &Roles{M: map[string]*model.Role{}}
}

func (r *Roles) Create(_ context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	role.ID = NewID()
	cp := *role
	r.M[role.ID] = &cp
	return nil
}

func (r *Roles) FindByID(_ context.Context, orgID, roleID string) (*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.M[roleID]
	if !ok || role.OrganizationID != orgID {
		return nil, fmt.Errorf("%w: %s", orgerrors.ErrRoleNotFound, roleID)
	}
	cp := *role
	return &cp, nil
}

func (r *Roles) FindByOrganization(_ context.Context, orgID string) ([]*model.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Role
	for _, role := range r.M {
		if role.OrganizationID == orgID {
			cp := *role
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *Roles) Update(_ context.Context, role *model.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *role
	r.M[role.ID] = &cp
	return nil
}

func (r *Roles) Delete(_ context.Context, _, roleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.M, roleID)
	return nil
}

func (r *Roles) DeleteByOrganization(_ context.Context, orgID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, role := range r.M {
		if role.OrganizationID == orgID {
			delete(r.M, id)
			n++
		}
	}
	return n, nil
}

// Events implements the event repository in memory.
type Events struct {
	mu sync.Mutex
	M  map[string]*model.Event
}

func NewEvents() *Events {
	return &Events{M: map[string]*model.Event{}}
}

func (e *Events) Put(ev *model.Event) *model.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.ID == "" {
		ev.ID = NewID()
	}
	e.M[ev.ID] = ev
	return ev
}

func (e *Events) FindByID(_ context.Context, id string) (*model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}
	ev, ok := e.M[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	return cloneEvent(ev), nil
}

func cloneEvent(ev *model.Event) *model.Event {
	cp := *ev
	cp.TicketTypes = append([]model.TicketType(nil), ev.TicketTypes...)
	return &cp
}

func (e *Events) Create(_ context.Context, ev *model.Event) error {
	ev.ID = NewID()
	ev.CreatedAt = mongotx.Now()
	ev.UpdatedAt = ev.CreatedAt
	e.Put(cloneEvent(ev))
	return nil
}

func (e *Events) visible(ownerID string, orgIDs []string, status model.EventStatus) []*model.Event {
	var out []*model.Event
	for _, ev := range e.M {
		if status != "" && ev.Status != status {
			continue
		}
		if ev.OwnerID == ownerID || (ev.OrganizationID != "" && slices.Contains(orgIDs, ev.OrganizationID)) {
			out = append(out, cloneEvent(ev))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Events) FindVisible(_ context.Context, ownerID string, orgIDs []string, status model.EventStatus, limit int, offset int64) ([]*model.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.visible(ownerID, orgIDs, status)
	if offset >= int64(len(all)) {
		return []*model.Event{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (e *Events) CountVisible(_ context.Context, ownerID string, orgIDs []string, status model.EventStatus) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return int64(len(e.visible(ownerID, orgIDs, status))), nil
}

func (e *Events) Update(_ context.Context, ev *model.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.M[ev.ID]; !ok {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, ev.ID)
	}
	ev.UpdatedAt = mongotx.Now()
	e.M[ev.ID] = cloneEvent(ev)
	return nil
}

func (e *Events) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.M[id]; !ok {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	delete(e.M, id)
	return nil
}

func (e *Events) PurgeOrganization(_ context.Context, orgID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.M {
		if ev.OrganizationID == orgID {
			ev.OrganizationID = ""
		}
	}
	return nil
}

func (e *Events) ExecuteTransaction(_ context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

// Org is a seeded organization with its system role IDs by name.
type Org struct {
	*model.Organization
	RoleIDs map[string]string
}

// SeedOrg stores an organization owned by ownerID with the system roles, and
// seats each extra member under the named system role.
func SeedOrg(orgs *Organizations, roles *Roles, ownerID string, members map[string]string) *Org {
	org := &model.Organization{Name: "Acme", Slug: "acme", OwnerID: ownerID}
	_ = orgs.Create(context.Background(), org)

	ids := map[string]string{}
	for _, sr := range model.SystemRoles {
		role := &model.Role{OrganizationID: org.ID, Name: sr.Name, Permissions: sr.Permissions, System: true}
		_ = roles.Create(context.Background(), role)
		ids[sr.Name] = role.ID
	}

	_ = orgs.AddMember(context.Background(), org.ID, model.Member{UserID: ownerID, RoleID: ids[model.RoleAdmin]})
	for userID, roleName := range members {
		_ = orgs.AddMember(context.Background(), org.ID, model.Member{UserID: userID, RoleID: ids[roleName]})
	}

	stored, _ := orgs.FindByID(context.Background(), org.ID)
	return &Org{Organization: stored, RoleIDs: ids}
}

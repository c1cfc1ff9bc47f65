package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"ikiraha-api/internal/event"
	"ikiraha-api/internal/model"
)

// fakeStore mirrors the Postgres unique constraints on email and phone.
type fakeStore struct {
	mu     sync.Mutex
	users  map[int64]model.User
	roles  map[string]model.Role
	nextID int64

	insertErr    error
	skipPrecheck bool
	inserts      int
	updates      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]model.User{},
		roles: map[string]model.Role{
			model.RoleCustomer: {ID: 1, Name: model.RoleCustomer, IsActive: true},
			model.RoleAdmin:    {ID: 3, Name: model.RoleAdmin, IsActive: true},
		},
	}
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipPrecheck {
		return model.User{}, model.ErrUserNotFound
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeStore) FindByPhone(_ context.Context, phone string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.skipPrecheck {
		return model.User{}, model.ErrUserNotFound
	}
	for _, u := range f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) FindRoleByName(_ context.Context, name string) (model.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[name]
	if !ok || !role.IsActive {
		return model.Role{}, model.ErrRoleNotFound
	}
	return role, nil
}

func (f *fakeStore) InsertUser(_ context.Context, u model.User) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return 0, model.ErrEmailTaken
		}
		if existing.Phone == u.Phone {
			return 0, model.ErrPhoneTaken
		}
	}

	f.nextID++
	u.ID = f.nextID
	for _, role := range f.roles {
		if role.ID == u.RoleID {
			u.RoleName = role.Name
		}
	}
	f.users[u.ID] = u
	f.inserts++
	return u.ID, nil
}

func (f *fakeStore) UpdateFields(_ context.Context, id int64, update model.ProfileUpdate, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	if update.Phone != nil {
		for otherID, other := range f.users {
			if otherID != id && other.Phone == *update.Phone {
				return model.ErrPhoneTaken
			}
		}
		u.Phone = *update.Phone
	}
	if update.FirstName != nil {
		u.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		u.LastName = *update.LastName
	}
	if update.DateOfBirth != nil {
		dob := *update.DateOfBirth
		u.DateOfBirth = &dob
	}
	if update.Gender != nil {
		gender := *update.Gender
		u.Gender = &gender
	}
	u.UpdatedAt = at
	f.users[id] = u
	f.updates++
	return nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.LastLoginAt = &at
	f.users[id] = u
	return nil
}

func (f *fakeStore) UpdatePasswordHash(_ context.Context, id int64, hash string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	f.users[id] = u
	return nil
}

func (f *fakeStore) List(_ context.Context, query model.UserQuery) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		if query.Role != "" && u.RoleName != query.Role {
			continue
		}
		if query.Status == "active" && !u.IsActive || query.Status == "inactive" && u.IsActive {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	start := (query.Page - 1) * query.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+query.Limit, len(matched))
	return matched[start:end], len(matched), nil
}

func (f *fakeStore) setActive(id int64, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.users[id]
	u.IsActive = active
	f.users[id] = u
}

func (f *fakeStore) delete(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func (p *recordingPublisher) last(t event.Type) (event.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			return p.events[i], true
		}
	}
	return event.Event{}, false
}

var errStoreDown = errors.New("connection refused")

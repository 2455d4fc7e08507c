// Package users keeps the user directory. Accounts are created by the
// identity provider; this service records who has authenticated so peers
// can reach them.
package users

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/ageniuscoder/pairchat/backend/internal/domain"
	"github.com/samber/lo"
)

type User struct {
	ID       string `json:"id" bson:"_id"`
	Username string `json:"username" bson:"username"`
}

// Directory lists the users a viewer can chat with.
type Directory interface {
	// List returns every known user ordered by id.
	List(ctx context.Context) ([]User, error)
	Exists(ctx context.Context, id string) (bool, error)
	// Get fails with domain.ErrNotFound for unknown ids.
	Get(ctx context.Context, id string) (User, error)
	// Upsert records u. An empty username never overwrites a stored one.
	Upsert(ctx context.Context, u User) error
}

// StaticDirectory is an in-memory directory.
type StaticDirectory struct {
	mu    sync.RWMutex
	users []User
}

func NewStaticDirectory(users ...User) *StaticDirectory {
	sorted := lo.UniqBy(users, func(u User) string { return u.ID })
	sortByID(sorted)
	return &StaticDirectory{users: sorted}
}

func (d *StaticDirectory) List(context.Context) ([]User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]User(nil), d.users...), nil
}

func (d *StaticDirectory) Exists(_ context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.ContainsBy(d.users, func(u User) bool { return u.ID == id }), nil
}

func (d *StaticDirectory) Get(_ context.Context, id string) (User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := lo.Find(d.users, func(u User) bool { return u.ID == id })
	if !ok {
		return User{}, domain.NotFoundf("user %s not found", id)
	}
	return u, nil
}

func (d *StaticDirectory) Upsert(_ context.Context, u User) error {
	if u.ID == "" {
		return domain.Validationf("user id is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, i, ok := lo.FindIndexOf(d.users, func(x User) bool { return x.ID == u.ID })
	if ok {
		if u.Username != "" {
			d.users[i].Username = u.Username
		}
		return nil
	}
	d.users = append(d.users, u)
	sortByID(d.users)
	return nil
}

func sortByID(list []User) {
	slices.SortFunc(list, func(a, b User) int { return strings.Compare(a.ID, b.ID) })
}

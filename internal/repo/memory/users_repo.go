package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/coursehub/internal/domain/user"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsersRepo keeps users in a map and enforces the same uniqueness rules as
// the document store's indexes.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
	}
}

// conflict must be called with the lock held. skipID is ignored in checks.
// A second admin wins over a taken email, which wins over a taken username.
func (r *UsersRepo) conflict(u user.User, skipID string) error {
	checks := []struct {
		clash func(other user.User) bool
		err   error
	}{
		{func(other user.User) bool { return u.Role == user.RoleAdmin && other.Role == user.RoleAdmin }, user.ErrAdminExists},
		{func(other user.User) bool { return other.Email == u.Email }, user.ErrEmailTaken},
		{func(other user.User) bool { return other.Username == u.Username }, user.ErrUsernameTaken},
	}

	for _, c := range checks {
		for id, other := range r.items {
			if id != skipID && c.clash(other) {
				return c.err
			}
		}
	}
	return nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(u, ""); err != nil {
		return user.User{}, err
	}

	u.ID = primitive.NewObjectID().Hex()
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	if !primitive.IsValidObjectID(id) {
		return user.User{}, user.ErrInvalidID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, ch user.Changes) (user.User, error) {
	if !primitive.IsValidObjectID(id) {
		return user.User{}, user.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if ch.Username != nil {
		u.Username = *ch.Username
	}
	if ch.Fullname != nil {
		u.Fullname = *ch.Fullname
	}
	if ch.Email != nil {
		u.Email = *ch.Email
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}

	if err := r.conflict(u, id); err != nil {
		return user.User{}, err
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	if !primitive.IsValidObjectID(id) {
		return user.ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.items, id)

	return nil
}

func (r *UsersRepo) DeleteAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.items))
	r.items = make(map[string]user.User)

	return n, nil
}

// List returns users oldest first, without password hashes.
func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		u.PasswordHash = ""
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

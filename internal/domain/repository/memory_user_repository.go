package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"identity_hub/internal/common"
	"identity_hub/internal/domain/model"
)

// MemoryUserRepository keeps users in process memory. Uniqueness checks and
// writes happen under one lock, so concurrent creates cannot both win.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byID       map[string]*model.User
	byUsername map[string]string
	byEmail    map[string]string
	now        func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byID:       make(map[string]*model.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
		now:        time.Now,
	}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return common.ErrDuplicateUsername
	}
	if _, taken := r.byEmail[user.Email]; taken {
		return common.ErrDuplicateEmail
	}

	now := r.now().UTC()
	user.Version = 1
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = user.Clone()
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *MemoryUserRepository) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byEmail[email]
	return ok, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*model.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[user.ID]
	if !ok {
		return common.ErrNotFound
	}
	if current.Version != user.Version {
		return common.ErrConcurrentUpdate
	}
	if owner, taken := r.byUsername[user.Username]; taken && owner != user.ID {
		return common.ErrDuplicateUsername
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return common.ErrDuplicateEmail
	}

	delete(r.byUsername, current.Username)
	delete(r.byEmail, current.Email)

	user.Version = current.Version + 1
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.now().UTC()

	r.byID[user.ID] = user.Clone()
	r.byUsername[user.Username] = user.ID
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byUsername, u.Username)
	delete(r.byEmail, u.Email)
	return nil
}

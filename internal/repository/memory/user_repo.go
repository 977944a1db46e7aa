// Package memory holds process-local stores used in tests and single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/google/uuid"
)

var _ user.Repo = (*UserRepo)(nil)

type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*user.User
	byEmail map[string]string
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return user.ErrEmailTaken
	}
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	r.byID[cp.ID] = &cp
	r.byEmail[cp.Email] = cp.ID
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) Ping(context.Context) error { return nil }

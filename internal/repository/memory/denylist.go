package memory

import (
	"context"
	"sync"
	"time"

	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
)

var _ domainauth.Denylist = (*Denylist)(nil)

type Denylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewDenylist(now func() time.Time) *Denylist {
	if now == nil {
		now = time.Now
	}
	return &Denylist{entries: make(map[string]time.Time), now: now}
}

func (d *Denylist) Revoke(_ context.Context, jti string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !until.After(d.now()) {
		return nil
	}
	d.entries[jti] = until
	return nil
}

func (d *Denylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	until, ok := d.entries[jti]
	if !ok {
		return false, nil
	}
	if !until.After(d.now()) {
		delete(d.entries, jti)
		return false, nil
	}
	return true, nil
}

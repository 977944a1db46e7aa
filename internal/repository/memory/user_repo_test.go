package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	u := &user.User{FirstName: "Ada", LastName: "L", Email: "ada@x.io", PasswordHash: "h"}
	require.NoError(t, r.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	require.False(t, u.CreatedAt.IsZero())

	byEmail, err := r.GetByEmail(ctx, "ada@x.io")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "h", byEmail.PasswordHash)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.FirstName)

	_, err = r.GetByEmail(ctx, "nobody@x.io")
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = r.GetByID(ctx, "missing")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUserRepo_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		ok    int
		taken int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Create(ctx, &user.User{Email: "same@x.io"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if assert.ErrorIs(t, err, user.ErrEmailTaken) {
				taken++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 15, taken)
}

func TestDenylist(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewDenylist(func() time.Time { return now })

	require.NoError(t, d.Revoke(ctx, "j1", now.Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "old", now.Add(-time.Minute)))

	revoked, err := d.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

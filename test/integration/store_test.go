//go:build integration

package integration

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/studybuddy/internal/domain/user"
	mg "github.com/NordCoder/studybuddy/internal/repository/mongo"
	pg "github.com/NordCoder/studybuddy/internal/repository/postgres"
	rd "github.com/NordCoder/studybuddy/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseRepo(t *testing.T, repo user.Repo, email string) {
	t.Helper()
	ctx := context.Background()

	u := &user.User{FirstName: "Ada", LastName: "Lovelace", Email: email, PasswordHash: "$2a$10$hash"}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	err := repo.Create(ctx, &user.User{FirstName: "X", LastName: "Y", Email: email, PasswordHash: "h"})
	require.True(t, errors.Is(err, user.ErrEmailTaken), "got %v", err)

	got, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)

	_, err = repo.GetByEmail(ctx, "missing-"+email)
	require.ErrorIs(t, err, user.ErrNotFound)
	_, err = repo.GetByID(ctx, "not-an-id")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestPostgresUserRepo(t *testing.T) {
	c := LoadCfg()
	ctx := context.Background()

	db, err := pg.NewDB(ctx, pg.Config{DSN: c.DBDSN, QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, pg.Migrate(db))

	email := RandEmail("pg")
	sqlDB := DBOpen(t, c.DBDSN)
	defer func(db *sql.DB) {
		DeleteUser(t, db, email)
		_ = db.Close()
	}(sqlDB)

	exerciseRepo(t, pg.NewUserRepo(db), email)
}

func TestMongoUserRepo(t *testing.T) {
	c := LoadCfg()
	ctx := context.Background()

	db, err := mg.NewDB(ctx, mg.Config{URI: c.MongoURL, Database: "studybuddy_it", QueryTimeout: 5 * time.Second})
	require.NoError(t, err)
	defer func() {
		_ = db.Database.Drop(context.Background())
		_ = db.Close(context.Background())
	}()

	repo := mg.NewUserRepo(db)
	require.NoError(t, repo.EnsureIndexes(ctx))
	require.NoError(t, repo.EnsureIndexes(ctx))
	exerciseRepo(t, repo, RandEmail("mongo"))
}

func TestRedisDenylist(t *testing.T) {
	c := LoadCfg()
	if err := TCPReachable(c.RedisAddr, time.Second); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	ctx := context.Background()

	client, err := rd.NewClient(ctx, rd.Config{URL: c.RedisURL})
	require.NoError(t, err)
	defer client.Close()

	list := rd.NewDenylist(client, time.Second)
	jti := RandEmail("jti")

	revoked, err := list.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, list.Revoke(ctx, jti, time.Now().Add(2*time.Second)))
	revoked, err = list.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	require.Eventually(t, func() bool {
		revoked, err := list.IsRevoked(ctx, jti)
		return err == nil && !revoked
	}, 5*time.Second, 200*time.Millisecond)

	// already expired tokens are not written at all
	require.NoError(t, list.Revoke(ctx, "past", time.Now().Add(-time.Minute)))
	revoked, err = list.IsRevoked(ctx, "past")
	require.NoError(t, err)
	assert.False(t, revoked)
}

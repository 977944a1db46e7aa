package session_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	tokens "github.com/NordCoder/studybuddy/internal/auth"
	"github.com/NordCoder/studybuddy/internal/client/api"
	"github.com/NordCoder/studybuddy/internal/client/session"
	"github.com/NordCoder/studybuddy/internal/repository/memory"
	"github.com/NordCoder/studybuddy/internal/services/auth-server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestSessionAgainstServer(t *testing.T) {
	clk := &clock{t: time.Now().UTC()}
	tk, err := tokens.NewTokens(tokens.TokenConfig{
		AccessSecret:  []byte("access"),
		RefreshSecret: []byte("refresh"),
		Now:           clk.Now,
	})
	require.NoError(t, err)
	uc := auth.NewUseCase(memory.NewUserRepo(), tk, tokens.NewHasher(bcrypt.MinCost), auth.Config{})
	srv := httptest.NewServer(auth.NewServer(uc, auth.Opts{BasePath: "/api"}).Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := api.New(srv.URL+"/api", 5*time.Second)

	require.NoError(t, client.SignUp(ctx, api.SignUpRequest{FirstName: "A", LastName: "B", Email: "a@b.com", Password: "secret"}))
	pair, err := client.Login(ctx, "a@b.com", "secret")
	require.NoError(t, err)

	backend := session.NewMemoryBackend()
	opts := session.Options{Now: clk.Now}
	tab1 := session.New(backend.Tab(), client, opts)
	tab2 := session.New(backend.Tab(), client, opts)

	snap, err := tab1.Store(ctx, pair)
	require.NoError(t, err)
	require.Equal(t, session.LoggedIn, snap.State)
	assert.Equal(t, "a@b.com", snap.User.Email)

	// an hour later the access token is stale and tab2 refreshes it once
	clk.t = clk.t.Add(61 * time.Minute)
	snap, err = tab2.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, session.LoggedIn, snap.State)
	assert.NotEqual(t, pair.Access, snap.AccessToken)
	assert.Equal(t, "a@b.com", snap.User.Email)

	me, err := client.Me(ctx, snap.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", me.Email)

	go func() { _ = tab2.Watch(ctx, nil) }()
	// Watch subscribes asynchronously, so repeat the removal until tab2 has seen one
	other := backend.Tab()
	require.Eventually(t, func() bool {
		_ = other.Set(session.KeyRefreshToken, pair.Refresh)
		_ = other.Remove(session.KeyRefreshToken)
		return tab2.Snapshot().State == session.LoggedOut
	}, 2*time.Second, 20*time.Millisecond)

	tab1.Logout(ctx)
	assert.Equal(t, session.LoggedOut, tab1.Snapshot().State)
}

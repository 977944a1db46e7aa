package auth

import (
	"context"
	"testing"
	"time"

	tokens "github.com/NordCoder/studybuddy/internal/auth"
	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/NordCoder/studybuddy/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	uc     *Usecase
	users  *memory.UserRepo
	tokens *tokens.Tokens
	clock  *testClock
}

func newFixture(t *testing.T, withDenylist bool) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	tk, err := tokens.NewTokens(tokens.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Now:           clock.Now,
	})
	require.NoError(t, err)

	users := memory.NewUserRepo()
	cfg := Config{}
	if withDenylist {
		cfg.Denylist = memory.NewDenylist(clock.Now)
	}
	return &fixture{
		uc:     NewUseCase(users, tk, tokens.NewHasher(bcrypt.MinCost), cfg),
		users:  users,
		tokens: tk,
		clock:  clock,
	}
}

func (f *fixture) signUp(t *testing.T, email, password string) {
	t.Helper()
	_, err := f.uc.SignUp(context.Background(), SignUpInput{FirstName: "Ada", LastName: "Lovelace", Email: email, Password: password})
	require.NoError(t, err)
}

func TestSignUp(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	u, err := f.uc.SignUp(ctx, SignUpInput{FirstName: " Ada ", LastName: "Lovelace", Email: "  Ada@Example.COM ", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.FirstName)

	stored, err := f.users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
}

func TestSignUp_MissingFields(t *testing.T) {
	f := newFixture(t, false)
	full := SignUpInput{FirstName: "A", LastName: "B", Email: "a@b.io", Password: "p"}

	cases := map[string]func(in *SignUpInput){
		"first name": func(in *SignUpInput) { in.FirstName = "" },
		"last name":  func(in *SignUpInput) { in.LastName = "  " },
		"email":      func(in *SignUpInput) { in.Email = "" },
		"password":   func(in *SignUpInput) { in.Password = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := full
			mutate(&in)
			_, err := f.uc.SignUp(context.Background(), in)
			require.ErrorIs(t, err, ErrFieldsRequired)
		})
	}
}

func TestSignUp_Duplicate(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "p1")

	_, err := f.uc.SignUp(context.Background(), SignUpInput{FirstName: "A", LastName: "B", Email: "ADA@example.com", Password: "p2"})
	require.ErrorIs(t, err, ErrUserExists)
}

// racingRepo misses the duplicate on lookup and only learns about it on insert.
type racingRepo struct{ user.Repo }

func (racingRepo) GetByEmail(context.Context, string) (*user.User, error) { return nil, user.ErrNotFound }
func (racingRepo) Create(context.Context, *user.User) error             { return user.ErrEmailTaken }

func TestSignUp_ConcurrentDuplicate(t *testing.T) {
	f := newFixture(t, false)
	uc := NewUseCase(racingRepo{}, f.tokens, tokens.NewHasher(bcrypt.MinCost), Config{})

	_, err := uc.SignUp(context.Background(), SignUpInput{FirstName: "A", LastName: "B", Email: "a@b.io", Password: "p"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLogin(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()

	pair, err := f.uc.Login(ctx, " ADA@example.com", "s3cret")
	require.NoError(t, err)

	access, err := f.tokens.VerifyAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", access.Email)
	assert.Equal(t, f.clock.Now().Add(time.Hour).Unix(), access.ExpiresAt)

	refresh, err := f.tokens.VerifyRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, access.ID, refresh.ID)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour).Unix(), refresh.ExpiresAt)
}

func TestLogin_Failures(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()

	_, err := f.uc.Login(ctx, "", "s3cret")
	require.ErrorIs(t, err, ErrCredentialsRequired)
	_, err = f.uc.Login(ctx, "ada@example.com", "")
	require.ErrorIs(t, err, ErrCredentialsRequired)

	_, err = f.uc.Login(ctx, "nobody@example.com", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.uc.Login(ctx, "ada@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestRefresh(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()

	pair, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.uc.Authenticate(ctx, pair.Access)
	require.ErrorIs(t, err, ErrAccessExpired)

	access, err := f.uc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := f.uc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestRefresh_Failures(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()
	pair, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	_, err = f.uc.Refresh(ctx, "")
	require.ErrorIs(t, err, ErrRefreshRequired)

	_, err = f.uc.Refresh(ctx, pair.Access)
	require.ErrorIs(t, err, ErrRefreshInvalid)

	_, err = f.uc.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, ErrRefreshInvalid)

	f.clock.Advance(8 * 24 * time.Hour)
	_, err = f.uc.Refresh(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrRefreshInvalid)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.uc.Authenticate(ctx, "")
	require.ErrorIs(t, err, ErrAccessRequired)
	_, err = f.uc.Authenticate(ctx, "x.y.z")
	require.ErrorIs(t, err, ErrAccessInvalid)
}

func TestLogout_WithoutDenylist(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()
	pair, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, pair.Access, pair.Refresh))

	// stateless tokens outlive a logout
	_, err = f.uc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
}

func TestLogout_WithDenylist(t *testing.T) {
	f := newFixture(t, true)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()
	pair, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, f.uc.Logout(ctx, pair.Access, pair.Refresh))

	_, err = f.uc.Refresh(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrRefreshInvalid)
	_, err = f.uc.Authenticate(ctx, pair.Access)
	require.ErrorIs(t, err, ErrAccessInvalid)

	// junk tokens are ignored
	require.NoError(t, f.uc.Logout(ctx, "junk", ""))

	// a fresh login is unaffected
	pair2, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)
	_, err = f.uc.Refresh(ctx, pair2.Refresh)
	require.NoError(t, err)
}

func TestMe(t *testing.T) {
	f := newFixture(t, false)
	f.signUp(t, "ada@example.com", "s3cret")
	ctx := context.Background()
	pair, err := f.uc.Login(ctx, "ada@example.com", "s3cret")
	require.NoError(t, err)

	claims, err := f.uc.Authenticate(ctx, pair.Access)
	require.NoError(t, err)
	u, err := f.uc.Me(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", u.LastName)

	claims.ID = "gone"
	_, err = f.uc.Me(ctx, claims)
	require.ErrorIs(t, err, ErrAccessInvalid)
}

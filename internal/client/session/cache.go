// Package session is the client side of authentication: it keeps the token
// pair in shared storage, decides on every trigger whether the holder is
// logged in, refreshes an expired access token once, and follows logouts made
// by other holders of the same storage.
//
// Claims are decoded without verifying the signature. They are for display
// and scheduling only and must never be used as an authorization decision.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tokens "github.com/NordCoder/studybuddy/internal/auth"
	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"go.uber.org/zap"
)

type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged in"
	}
	return "logged out"
}

type Snapshot struct {
	State        State
	User         *domainauth.Claims
	AccessToken  string
	RefreshToken string
}

type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type Options struct {
	Now func() time.Time
	// Home is called after every login and logout, like navigating to the home route.
	Home   func(Snapshot)
	Logger *zap.Logger
}

type Cache struct {
	store     Store
	refresher Refresher
	now       func() time.Time
	home      func(Snapshot)
	log       *zap.Logger

	mu   sync.Mutex
	snap Snapshot
}

func New(store Store, refresher Refresher, opts Options) *Cache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Home == nil {
		opts.Home = func(Snapshot) {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{store: store, refresher: refresher, now: opts.Now, home: opts.Home, log: opts.Logger}
}

type action int

const (
	actLogout action = iota
	actRefresh
	actAccept
)

// decide is the whole state machine. It never performs I/O.
func decide(access, refresh string, now time.Time) (action, *domainauth.Claims) {
	if refresh == "" {
		return actLogout, nil
	}
	if access == "" {
		// no eager refresh: the user has to log in again
		return actLogout, nil
	}
	claims, err := tokens.Decode(access)
	if err != nil || claims.ExpiresAt == 0 {
		return actLogout, nil
	}
	if !now.Before(time.Unix(claims.ExpiresAt, 0)) {
		return actRefresh, claims
	}
	return actAccept, claims
}

func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Check re-evaluates the stored tokens. Call it on start and on any trigger.
func (c *Cache) Check(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	snap, loggedOut, err := c.check(ctx)
	c.mu.Unlock()
	if loggedOut {
		c.home(snap)
	}
	return snap, err
}

func (c *Cache) check(ctx context.Context) (Snapshot, bool, error) {
	access, err := c.store.Get(KeyAccessToken)
	if err != nil {
		return c.logoutLocked("storage unreadable", err)
	}
	refresh, err := c.store.Get(KeyRefreshToken)
	if err != nil {
		return c.logoutLocked("storage unreadable", err)
	}

	act, claims := decide(access, refresh, c.now())
	switch act {
	case actAccept:
		c.snap = Snapshot{State: LoggedIn, User: claims, AccessToken: access, RefreshToken: refresh}
		return c.snap, false, nil
	case actRefresh:
		fresh, err := c.refresher.Refresh(ctx, refresh)
		if err != nil {
			return c.logoutLocked("refresh failed", err)
		}
		act, claims = decide(fresh, refresh, c.now())
		if act != actAccept {
			return c.logoutLocked("refreshed token unusable", nil)
		}
		if err := c.store.Set(KeyAccessToken, fresh); err != nil {
			return c.logoutLocked("store refreshed token", err)
		}
		c.log.Debug("access token refreshed", zap.String("email", claims.Email))
		c.snap = Snapshot{State: LoggedIn, User: claims, AccessToken: fresh, RefreshToken: refresh}
		return c.snap, false, nil
	default:
		return c.logoutLocked("no usable session", nil)
	}
}

// Login adopts the tokens that were just stored after a successful server login.
func (c *Cache) Login(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	snap, err := c.login()
	c.mu.Unlock()
	c.home(snap)
	return snap, err
}

var ErrSessionUnusable = errors.New("stored access token is missing, undecodable or expired")

func (c *Cache) login() (Snapshot, error) {
	access, err := c.store.Get(KeyAccessToken)
	if err != nil {
		snap, _, _ := c.logoutLocked("storage unreadable", err)
		return snap, err
	}
	refresh, _ := c.store.Get(KeyRefreshToken)

	claims, err := tokens.Decode(access)
	if err != nil || claims.ExpiresAt == 0 || !c.now().Before(time.Unix(claims.ExpiresAt, 0)) {
		snap, _, _ := c.logoutLocked("login token unusable", err)
		return snap, ErrSessionUnusable
	}
	c.snap = Snapshot{State: LoggedIn, User: claims, AccessToken: access, RefreshToken: refresh}
	c.log.Info("logged in", zap.String("email", claims.Email))
	return c.snap, nil
}

// Store saves a token pair and logs in with it.
func (c *Cache) Store(ctx context.Context, pair domainauth.TokenPair) (Snapshot, error) {
	if err := c.store.Set(KeyAccessToken, pair.Access); err != nil {
		return c.Snapshot(), fmt.Errorf("store access token: %w", err)
	}
	if err := c.store.Set(KeyRefreshToken, pair.Refresh); err != nil {
		return c.Snapshot(), fmt.Errorf("store refresh token: %w", err)
	}
	return c.Login(ctx)
}

func (c *Cache) Logout(context.Context) Snapshot {
	c.mu.Lock()
	snap, _, _ := c.logoutLocked("logout requested", nil)
	c.mu.Unlock()
	c.home(snap)
	return snap
}

func (c *Cache) logoutLocked(reason string, cause error) (Snapshot, bool, error) {
	fields := []zap.Field{zap.String("reason", reason)}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	c.log.Info("session cleared", fields...)

	var storeErr error
	if err := c.store.Remove(KeyAccessToken); err != nil {
		storeErr = err
	}
	if err := c.store.Remove(KeyRefreshToken); err != nil {
		storeErr = err
	}
	c.snap = Snapshot{State: LoggedOut}
	return c.snap, true, storeErr
}

// Watch follows changes made by other holders of the store until ctx is done.
// A removed refresh token logs out at once; anything else triggers a Check.
func (c *Cache) Watch(ctx context.Context, onChange func(Snapshot)) error {
	changes, err := c.store.Subscribe(ctx)
	if err != nil {
		return err
	}
	for ch := range changes {
		var snap Snapshot
		if ch.Key == KeyRefreshToken && ch.NewValue == "" {
			snap = c.Logout(ctx)
		} else {
			snap, _ = c.Check(ctx)
		}
		if onChange != nil {
			onChange(snap)
		}
	}
	return ctx.Err()
}

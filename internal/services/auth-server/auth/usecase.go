package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tokens "github.com/NordCoder/studybuddy/internal/auth"
	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"github.com/NordCoder/studybuddy/internal/domain/user"
	"github.com/NordCoder/studybuddy/internal/obs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrFieldsRequired      = errors.New("all fields are required")
	ErrPasswordTooLong     = errors.New("password is too long")
	ErrUserExists          = errors.New("user already exists")
	ErrCredentialsRequired = errors.New("email and password are required")
	ErrInvalidCredentials  = errors.New("no user with this email")
	ErrInvalidPassword     = errors.New("password does not match")
	ErrRefreshRequired     = errors.New("refresh token is required")
	ErrRefreshInvalid      = errors.New("invalid refresh token")
	ErrAccessRequired      = errors.New("access token is required")
	ErrAccessExpired       = errors.New("access token expired")
	ErrAccessInvalid       = errors.New("invalid access token")
)

var tracer = otel.Tracer("studybuddy/auth")

type TokenService interface {
	IssuePair(c domainauth.Claims) (domainauth.TokenPair, error)
	IssueAccess(c domainauth.Claims) (string, error)
	VerifyAccess(token string) (*domainauth.Claims, error)
	VerifyRefresh(token string) (*domainauth.Claims, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) (bool, error)
}

type Config struct {
	// Denylist is optional; without it tokens stay valid until they expire.
	Denylist domainauth.Denylist
	Logger   *zap.Logger
}

type Usecase struct {
	users    user.Repo
	tokens   TokenService
	hasher   PasswordHasher
	denylist domainauth.Denylist
	log      *zap.Logger
}

func NewUseCase(users user.Repo, tokens TokenService, hasher PasswordHasher, cfg Config) *Usecase {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{users: users, tokens: tokens, hasher: hasher, denylist: cfg.Denylist, log: log}
}

type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (u *Usecase) SignUp(ctx context.Context, in SignUpInput) (_ *user.User, err error) {
	ctx, span := tracer.Start(ctx, "auth.SignUp")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(in.Email)
	first, last := strings.TrimSpace(in.FirstName), strings.TrimSpace(in.LastName)
	if first == "" || last == "" || email == "" || in.Password == "" {
		return nil, ErrFieldsRequired
	}

	_, err = u.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, user.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, tokens.ErrPasswordTooLong) {
			return nil, ErrPasswordTooLong
		}
		return nil, err
	}

	newUser := &user.User{FirstName: first, LastName: last, Email: email, PasswordHash: hash}
	if err := u.users.Create(ctx, newUser); err != nil {
		// lost a race with a concurrent signup for the same email
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	obs.WithTrace(ctx, u.log).Info("user created", zap.String("user_id", newUser.ID), zap.String("email", email))
	return newUser, nil
}

func (u *Usecase) Login(ctx context.Context, email, password string) (_ domainauth.TokenPair, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domainauth.TokenPair{}, ErrCredentialsRequired
	}

	rec, err := u.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return domainauth.TokenPair{}, ErrInvalidCredentials
		}
		return domainauth.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := u.hasher.Verify(password, rec.PasswordHash)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	if !ok {
		return domainauth.TokenPair{}, ErrInvalidPassword
	}

	pair, err := u.tokens.IssuePair(domainauth.Claims{ID: rec.ID, Email: rec.Email})
	if err != nil {
		return domainauth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Refresh trades a valid refresh token for a new access token. The refresh
// token itself is not rotated.
func (u *Usecase) Refresh(ctx context.Context, refreshToken string) (_ string, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() { endSpan(span, err) }()

	if refreshToken == "" {
		return "", ErrRefreshRequired
	}
	claims, err := u.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}
	revoked, err := u.isRevoked(ctx, claims.JTI)
	if err != nil {
		return "", err
	}
	if revoked {
		return "", fmt.Errorf("%w: revoked", ErrRefreshInvalid)
	}

	access, err := u.tokens.IssueAccess(domainauth.Claims{ID: claims.ID, Email: claims.Email})
	if err != nil {
		return "", fmt.Errorf("issue access: %w", err)
	}
	return access, nil
}

// Logout revokes whichever of the presented tokens still verify. Without a
// denylist it does nothing; the client discarding its tokens ends the session.
func (u *Usecase) Logout(ctx context.Context, accessToken, refreshToken string) (err error) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	if u.denylist == nil {
		return nil
	}
	revoke := func(token string, verify func(string) (*domainauth.Claims, error)) error {
		if token == "" {
			return nil
		}
		claims, err := verify(token)
		if err != nil || claims.JTI == "" {
			return nil
		}
		until := unixTime(claims.ExpiresAt)
		if err := u.denylist.Revoke(ctx, claims.JTI, until); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
		return nil
	}
	if err := revoke(accessToken, u.tokens.VerifyAccess); err != nil {
		return err
	}
	return revoke(refreshToken, u.tokens.VerifyRefresh)
}

// Authenticate is the precondition every protected endpoint applies to the bearer token.
func (u *Usecase) Authenticate(ctx context.Context, accessToken string) (*domainauth.Claims, error) {
	if accessToken == "" {
		return nil, ErrAccessRequired
	}
	claims, err := u.tokens.VerifyAccess(accessToken)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, ErrAccessExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrAccessInvalid, err)
	}
	revoked, err := u.isRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: revoked", ErrAccessInvalid)
	}
	return claims, nil
}

func (u *Usecase) Me(ctx context.Context, claims *domainauth.Claims) (*user.User, error) {
	rec, err := u.users.GetByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: subject no longer exists", ErrAccessInvalid)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return rec, nil
}

func (u *Usecase) isRevoked(ctx context.Context, jti string) (bool, error) {
	if u.denylist == nil || jti == "" {
		return false, nil
	}
	revoked, err := u.denylist.IsRevoked(ctx, jti)
	if err != nil {
		return false, fmt.Errorf("denylist lookup: %w", err)
	}
	return revoked, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("auth.outcome", outcomeOf(err)))
		if outcomeOf(err) == outcomeError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0) }

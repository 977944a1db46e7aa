// Package auth issues and verifies the HS256 access and refresh tokens and
// hashes passwords. Everything here is in-memory and safe for concurrent use.
package auth

import (
	"errors"
	"fmt"
	"time"

	domainauth "github.com/NordCoder/studybuddy/internal/domain/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrSecretMissing = errors.New("token secret is empty")
	ErrSecretReused  = errors.New("access and refresh secrets must differ")
)

const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Now           func() time.Time
}

type jwtClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

func (c *jwtClaims) domain() *domainauth.Claims {
	out := &domainauth.Claims{ID: c.UserID, Email: c.Email, JTI: c.RegisteredClaims.ID}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Unix()
	}
	return out
}

// Tokens is both the issuer and the verifier.
type Tokens struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, ErrSecretMissing
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, ErrSecretReused
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Tokens{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.Now),
			// the last signature character carries padding bits that a lenient decoder drops
			jwt.WithStrictDecoding(),
		),
	}, nil
}

func (t *Tokens) IssueAccess(c domainauth.Claims) (string, error) {
	return t.issue(c, t.cfg.AccessSecret, t.cfg.AccessTTL)
}

func (t *Tokens) IssueRefresh(c domainauth.Claims) (string, error) {
	return t.issue(c, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
}

// IssuePair signs both tokens for the same subject.
func (t *Tokens) IssuePair(c domainauth.Claims) (domainauth.TokenPair, error) {
	access, err := t.IssueAccess(c)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	refresh, err := t.IssueRefresh(c)
	if err != nil {
		return domainauth.TokenPair{}, err
	}
	return domainauth.TokenPair{Access: access, Refresh: refresh}, nil
}

func (t *Tokens) issue(c domainauth.Claims, secret []byte, ttl time.Duration) (string, error) {
	// one clock reading so that exp - iat is exactly ttl
	now := t.cfg.Now().Truncate(time.Second)
	claims := jwtClaims{
		UserID: c.ID,
		Email:  c.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) VerifyAccess(token string) (*domainauth.Claims, error) {
	return t.verify(token, t.cfg.AccessSecret)
}

func (t *Tokens) VerifyRefresh(token string) (*domainauth.Claims, error) {
	return t.verify(token, t.cfg.RefreshSecret)
}

func (t *Tokens) verify(token string, secret []byte) (*domainauth.Claims, error) {
	var claims jwtClaims
	_, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		// the signature is checked before claims, so only a genuine token can be expired
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.UserID == "" || claims.Email == "" {
		return nil, fmt.Errorf("%w: missing subject claims", ErrTokenInvalid)
	}
	return claims.domain(), nil
}

// Decode reads the claims without checking the signature or expiry.
// Clients use it to schedule refreshes; servers must never trust its result.
func Decode(token string) (*domainauth.Claims, error) {
	var claims jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims.domain(), nil
}

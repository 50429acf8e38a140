package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrUnauthenticated is matched by every token failure.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenNotProvided means no bearer token was presented.
	ErrTokenNotProvided = fmt.Errorf("%w: token not provided", ErrUnauthenticated)
	// ErrTokenExpired means the token is past its exp claim.
	ErrTokenExpired = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	// ErrTokenInvalid covers malformed, badly signed and invalidated tokens.
	ErrTokenInvalid = fmt.Errorf("%w: token invalid", ErrUnauthenticated)
)

// SessionStore keeps the server-side record of issued tokens. A signed token
// is accepted only while its session exists.
type SessionStore interface {
	CreateSession(ctx context.Context, tokenID string, userID int64, expiresAt time.Time) error
	LookupSession(ctx context.Context, tokenID string, now time.Time) (userID int64, found bool, err error)
	DeleteSession(ctx context.Context, tokenID string) (deleted bool, err error)
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// TokenService issues, validates and invalidates HS256 bearer tokens.
type TokenService struct {
	store  SessionStore
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService backed by store.
func NewTokenService(store SessionStore, cfg TokenConfig) *TokenService {
	return &TokenService{
		store:  store,
		secret: cfg.Secret,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the lifetime of newly issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for userID and records its session.
func (s *TokenService) Issue(ctx context.Context, userID int64) (string, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.store.CreateSession(ctx, claims.ID, userID, expiresAt); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return signed, nil
}

// Validate returns the user id bound to raw. Every failure matches
// ErrUnauthenticated.
func (s *TokenService) Validate(ctx context.Context, raw string) (int64, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return 0, err
	}

	storedID, found, err := s.store.LookupSession(ctx, claims.ID, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: lookup session: %v", ErrUnauthenticated, err)
	}
	if !found || storedID != userID {
		return 0, ErrTokenInvalid
	}
	return userID, nil
}

// Invalidate revokes raw so later validation fails.
func (s *TokenService) Invalidate(ctx context.Context, raw string) error {
	claims, err := s.parse(raw)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteSession(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !deleted {
		return ErrTokenInvalid
	}
	return nil
}

func (s *TokenService) parse(raw string) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, ErrTokenNotProvided
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, ErrTokenInvalid
	case claims.ID == "":
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func subjectID(claims *jwt.RegisteredClaims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

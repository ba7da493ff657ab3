// Package auth verifies bearer tokens and restricts graph routes to administrators.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Verifier validates a bearer credential and returns the stable user id it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// AdminDirectory answers whether a user is an administrator.
type AdminDirectory interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// JWTVerifier accepts HS256 tokens signed with a shared secret. The subject is the user id.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTVerifier builds a verifier. An empty issuer disables the issuer check.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Sign issues an HS256 token for userID valid for ttl. Used by tooling and tests.
func (v *JWTVerifier) Sign(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// StaticAdmins is an allow-list of administrator ids.
type StaticAdmins map[string]struct{}

// NewStaticAdmins builds an allow-list, ignoring blank ids.
func NewStaticAdmins(ids []string) StaticAdmins {
	admins := make(StaticAdmins, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return admins
}

func (a StaticAdmins) IsAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := a[userID]
	return ok, nil
}

type userKey struct{}

// WithUser stores the authenticated user id in ctx.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

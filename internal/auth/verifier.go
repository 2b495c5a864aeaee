// Package auth verifies HS256 bearer tokens on the course API.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"coursegen/internal/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

const (
	ScopeRead  = "course.read"
	ScopeWrite = "course.write"
)

type Verifier struct {
	SigningKey []byte
	Issuer     string
	Audience   string
	Now        func() time.Time
}

// NewVerifier returns nil when no signing key is configured; a nil Verifier
// lets every request through.
func NewVerifier(cfg config.Config) *Verifier {
	key := strings.TrimSpace(cfg.Auth.SigningKey)
	if key == "" {
		return nil
	}
	return &Verifier{
		SigningKey: []byte(key),
		Issuer:     strings.TrimSpace(cfg.Auth.Issuer),
		Audience:   strings.TrimSpace(cfg.Auth.Audience),
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (v *Verifier) AuthenticateRequest(r *http.Request) (Principal, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	headerParts := strings.Fields(authHeader)
	if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "Bearer") {
		return Principal{}, ErrUnauthorized
	}
	return v.VerifyToken(headerParts[1])
}

func (v *Verifier) VerifyToken(rawToken string) (Principal, error) {
	if len(v.SigningKey) == 0 {
		return Principal{}, fmt.Errorf("%w: token signing key not configured", ErrUnauthorized)
	}
	now := v.Now
	if now == nil {
		now = time.Now
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(now),
		jwt.WithExpirationRequired(),
	}
	if v.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.Audience))
	}

	parsed, err := jwt.Parse(strings.TrimSpace(rawToken), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.SigningKey, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		return Principal{}, ErrUnauthorized
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrUnauthorized
	}
	subject := claimString(claims["sub"])
	if subject == "" {
		return Principal{}, ErrUnauthorized
	}
	return Principal{
		Subject: subject,
		TokenID: claimString(claims["jti"]),
		Scopes:  extractScopes(claims["scope"]),
	}, nil
}

// ValidateScopes accepts "*", an exact match, or a "course.*" style prefix.
func ValidateScopes(principal Principal, requiredScope string) error {
	if requiredScope == "" {
		return nil
	}
	for _, scope := range principal.Scopes {
		if scope == "*" || scope == requiredScope {
			return nil
		}
		if strings.HasSuffix(scope, ".*") {
			prefix := strings.TrimSuffix(scope, ".*")
			if strings.HasPrefix(requiredScope, prefix+".") {
				return nil
			}
		}
	}
	return ErrForbidden
}

// Require wraps next with token and scope checks. A nil Verifier returns
// next unchanged.
func (v *Verifier) Require(scope string, next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := v.AuthenticateRequest(r)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := ValidateScopes(principal, scope); err != nil {
			writeAuthError(w, http.StatusForbidden, "missing scope "+scope)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func claimString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		return ""
	}
}

func extractScopes(claim any) []string {
	var scopes []string
	switch value := claim.(type) {
	case string:
		scopes = append(scopes, strings.Fields(value)...)
	case []any:
		for _, item := range value {
			if scope := claimString(item); scope != "" {
				scopes = append(scopes, scope)
			}
		}
	}
	return scopes
}

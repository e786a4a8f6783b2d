// Package auth provides Qualys request signing for basic and bearer-token authentication.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Gateway tokens are valid for four hours; refresh ahead of that when the
	// token carries no readable expiry.
	fallbackTokenTTL = 3*time.Hour + 50*time.Minute
	refreshSkew      = 5 * time.Minute
)

// ErrNoToken is returned when a token signer has neither a token nor a way to fetch one.
var ErrNoToken = errors.New("no bearer token available")

// Signer produces the authentication headers for one request.
type Signer interface {
	Sign(ctx context.Context) (http.Header, error)
}

// Basic signs requests with HTTP basic credentials.
type Basic struct {
	Username string
	Password string
}

// Sign returns the Authorization header.
func (b *Basic) Sign(context.Context) (http.Header, error) {
	h := make(http.Header, 1)
	raw := b.Username + ":" + b.Password
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	return h, nil
}

// Valid reports whether credentials are configured.
func (b *Basic) Valid() bool {
	return b != nil && b.Username != "" && b.Password != ""
}

// FetchFunc obtains a fresh bearer token.
type FetchFunc func(ctx context.Context) (string, error)

// Token signs requests with a bearer JWT. The token is fetched lazily, cached, and
// refreshed shortly before it expires. Safe for concurrent use.
type Token struct {
	fetch FetchFunc
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewToken returns a signer that obtains tokens through fetch.
func NewToken(fetch FetchFunc) *Token {
	return &Token{fetch: fetch, now: time.Now}
}

// NewStaticToken returns a signer for a caller-supplied token. It never refreshes.
func NewStaticToken(token string) *Token {
	t := &Token{now: time.Now, token: token}
	t.expires = expiry(token, t.now())
	return t
}

// Sign returns the bearer Authorization header, fetching a token when needed.
func (t *Token) Sign(ctx context.Context) (http.Header, error) {
	tok, err := t.current(ctx)
	if err != nil {
		return nil, err
	}
	h := make(http.Header, 1)
	h.Set("Authorization", "Bearer "+tok)
	return h, nil
}

// Invalidate drops the cached token so the next Sign fetches a new one.
func (t *Token) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fetch != nil {
		t.token = ""
		t.expires = time.Time{}
	}
}

// Expires returns the instant the cached token is considered stale.
func (t *Token) Expires() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expires
}

func (t *Token) current(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && (t.fetch == nil || t.now().Before(t.expires)) {
		return t.token, nil
	}
	if t.fetch == nil {
		return "", ErrNoToken
	}

	tok, err := t.fetch(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", ErrNoToken
	}
	t.token = tok
	t.expires = expiry(tok, t.now())
	return tok, nil
}

// expiry reads the exp claim without verifying the signature; the gateway is the
// only party that can verify it.
func expiry(token string, now time.Time) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Add(-refreshSkew).UTC()
	}
	return now.Add(fallbackTokenTTL).UTC()
}

// Package auth implements stateless HMAC-signed bearer tokens with an
// in-memory revocation set for logout.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenManager issues and verifies tokens. Verification is stateless apart
// from the revocation set, which only has to outlive the token TTL and is
// cleared periodically.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]struct{}
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]struct{}),
	}
}

func (m *TokenManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue creates a token for the given subject expiring after the
// configured TTL. A random nonce keeps tokens unique per login.
func (m *TokenManager) Issue(subject string) string {
	expiry := m.now().Add(m.ttl).Unix()
	payload := base64.RawURLEncoding.EncodeToString(
		[]byte(fmt.Sprintf("%d:%s:%s", expiry, uuid.NewString(), subject)))
	return payload + "." + m.sign(payload)
}

// Verify checks the token signature, expiry and revocation status, and
// returns the subject the token was issued for.
func (m *TokenManager) Verify(token string) (string, error) {
	payload, sig, ok := strings.Cut(token, ".")
	if !ok {
		return "", ErrInvalidToken
	}

	if !hmac.Equal([]byte(m.sign(payload)), []byte(sig)) {
		return "", ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", ErrInvalidToken
	}
	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}
	expiry, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}
	if m.now().Unix() > expiry {
		return "", ErrTokenExpired
	}

	m.mu.Lock()
	_, revoked := m.revoked[token]
	m.mu.Unlock()
	if revoked {
		return "", ErrTokenRevoked
	}

	return parts[2], nil
}

// Revoke invalidates a token until the revocation set is next cleared.
// Clearing is safe because cleared tokens are at worst valid until their
// expiry, which the cleanup interval should exceed.
func (m *TokenManager) Revoke(token string) {
	m.mu.Lock()
	m.revoked[token] = struct{}{}
	m.mu.Unlock()
}

// RevokedCount returns the current size of the revocation set.
func (m *TokenManager) RevokedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.revoked)
}

func (m *TokenManager) clearRevoked() int {
	m.mu.Lock()
	cleared := len(m.revoked)
	m.revoked = make(map[string]struct{})
	m.mu.Unlock()
	return cleared
}

// RunCleanup clears the revocation set on the given interval until the
// context is cancelled.
func (m *TokenManager) RunCleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cleared := m.clearRevoked()
			if cleared > 0 {
				slog.InfoContext(ctx, "Cleared revoked tokens", "count", cleared)
			}
		}
	}
}

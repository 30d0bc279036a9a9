// Package credentials manages the short-lived signed bearer token the
// gCloud backend needs. Refresh is lazy and caller-driven; there is no
// background timer.
package credentials

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/avickers/ttsgate/internal/metrics"
)

const (
	tokenAudience = "https://texttospeech.googleapis.com/"
	tokenLease    = time.Hour
)

// ServiceAccount is the immutable signing material. It is loaded once at
// startup, used only to sign locally, and never transmitted.
type ServiceAccount struct {
	ClientEmail  string `json:"client_email"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`

	key *rsa.PrivateKey
}

// LoadServiceAccount reads and parses a Google service-account JSON file.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account %s is missing client_email or private_key", path)
	}

	sa.key, err = jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	return &sa, nil
}

// Manager owns the current token and its expiry. Reads take the RLock and
// release it before anything slow happens; the lock is never held across
// signing or I/O. Concurrent callers observing an expired token coalesce
// onto one refresh via singleflight, so at most one token is signed per
// expiry window and a slow stale refresh can never overwrite a newer token.
type Manager struct {
	sa    *ServiceAccount
	now   func() time.Time
	lease time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	token  string
	expiry time.Time
}

type Option func(*Manager)

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(sa *ServiceAccount, opts ...Option) *Manager {
	m := &Manager{
		sa:    sa,
		now:   time.Now,
		lease: tokenLease,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a bearer token valid at the time of the call. A still-valid
// token is reused; an expired one is replaced before being handed out.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	token, expiry := m.token, m.expiry
	m.mu.RUnlock()

	if token != "" && m.now().Before(expiry) {
		return token, nil
	}

	v, err, _ := m.group.Do("refresh", func() (any, error) {
		// A caller that queued behind the winning flight finds the fresh
		// token already installed and must not sign again.
		m.mu.RLock()
		token, expiry := m.token, m.expiry
		m.mu.RUnlock()
		if token != "" && m.now().Before(expiry) {
			return token, nil
		}

		fresh, freshExpiry, err := m.sign()
		if err != nil {
			return nil, fmt.Errorf("refresh credential token: %w", err)
		}

		m.mu.Lock()
		m.token, m.expiry = fresh, freshExpiry
		m.mu.Unlock()

		metrics.CredentialRefreshes.Inc()
		return fresh, nil
	})
	if err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return v.(string), nil
}

func (m *Manager) sign() (string, time.Time, error) {
	now := m.now()
	expiry := now.Add(m.lease)

	claims := jwt.MapClaims{
		"iss": m.sa.ClientEmail,
		"sub": m.sa.ClientEmail,
		"aud": tokenAudience,
		"iat": now.Unix(),
		"exp": expiry.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if m.sa.PrivateKeyID != "" {
		token.Header["kid"] = m.sa.PrivateKeyID
	}

	signed, err := token.SignedString(m.sa.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign claims: %w", err)
	}
	return signed, expiry, nil
}

package credentials

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avickers/ttsgate/internal/metrics"
)

func testServiceAccount(t *testing.T) *ServiceAccount {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &ServiceAccount{
		ClientEmail:  "tts@example.iam.gserviceaccount.com",
		PrivateKeyID: "key-1",
		key:          key,
	}
}

// fixedClock is a settable time source shared across goroutines safely for
// these tests (set only between Token calls).
type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestTokenIsSignedWithExpectedClaims(t *testing.T) {
	sa := testServiceAccount(t)
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(sa, WithClock(clock.now))

	token, err := m.Token(context.Background())
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (any, error) {
		return &sa.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(clock.now))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, sa.ClientEmail, claims["iss"])
	assert.Equal(t, sa.ClientEmail, claims["sub"])
	assert.Equal(t, tokenAudience, claims["aud"])
	assert.Equal(t, "key-1", parsed.Header["kid"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, clock.now().Add(time.Hour).Unix(), exp.Unix())
}

func TestValidTokenIsReused(t *testing.T) {
	sa := testServiceAccount(t)
	clock := &fixedClock{t: time.Now()}
	m := NewManager(sa, WithClock(clock.now))

	first, err := m.Token(context.Background())
	require.NoError(t, err)

	// Well inside the lease: every caller sees the same token.
	clock.advance(30 * time.Minute)
	for i := 0; i < 5; i++ {
		tok, err := m.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, tok)
	}
}

func TestExpiredTokenIsReplacedBeforeUse(t *testing.T) {
	sa := testServiceAccount(t)
	clock := &fixedClock{t: time.Now()}
	m := NewManager(sa, WithClock(clock.now))

	first, err := m.Token(context.Background())
	require.NoError(t, err)

	clock.advance(2 * time.Hour)

	second, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// The replacement is installed, not recomputed per call.
	third, err := m.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, third)
}

func TestConcurrentExpiryCausesOneRefresh(t *testing.T) {
	sa := testServiceAccount(t)
	clock := &fixedClock{t: time.Now()}
	m := NewManager(sa, WithClock(clock.now))

	const callers = 32
	tokens := make([]string, callers)
	refreshesBefore := testutil.ToFloat64(metrics.CredentialRefreshes)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	// Every caller got the single token produced by the winning flight;
	// losers waited on it instead of signing their own.
	for i := 1; i < callers; i++ {
		assert.Equal(t, tokens[0], tokens[i])
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CredentialRefreshes)-refreshesBefore)
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMagicLinkInvalid is returned for unknown, expired or already used tokens.
var ErrMagicLinkInvalid = errors.New("magic link invalid or expired")

// MagicLinkStore keeps one-time sign-in tokens.
type MagicLinkStore interface {
	Issue(ctx context.Context, email string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string) (string, error)
}

const magicLinkKeyPrefix = "magiclink:"

func newLinkToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RedisMagicLinks stores tokens with SET EX and consumes them with GETDEL.
type RedisMagicLinks struct {
	client redis.Cmdable
}

// NewRedisMagicLinks wraps a redis client.
func NewRedisMagicLinks(client redis.Cmdable) *RedisMagicLinks {
	return &RedisMagicLinks{client: client}
}

func (r *RedisMagicLinks) Issue(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token, err := newLinkToken()
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, magicLinkKeyPrefix+token, strings.ToLower(email), ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisMagicLinks) Consume(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMagicLinkInvalid
	}
	email, err := r.client.GetDel(ctx, magicLinkKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMagicLinkInvalid
	}
	if err != nil {
		return "", err
	}
	return email, nil
}

type memoryLink struct {
	email     string
	expiresAt time.Time
}

// MemoryMagicLinks is an in-process store for single-instance deployments.
type MemoryMagicLinks struct {
	mu    sync.Mutex
	links map[string]memoryLink
	now   func() time.Time
}

// NewMemoryMagicLinks returns an empty store. A nil clock uses time.Now.
func NewMemoryMagicLinks(now func() time.Time) *MemoryMagicLinks {
	if now == nil {
		now = time.Now
	}
	return &MemoryMagicLinks{links: make(map[string]memoryLink), now: now}
}

func (m *MemoryMagicLinks) Issue(_ context.Context, email string, ttl time.Duration) (string, error) {
	token, err := newLinkToken()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.now()
	for k, link := range m.links {
		if !current.Before(link.expiresAt) {
			delete(m.links, k)
		}
	}
	m.links[token] = memoryLink{email: strings.ToLower(email), expiresAt: current.Add(ttl)}
	return token, nil
}

func (m *MemoryMagicLinks) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, ok := m.links[token]
	if !ok {
		return "", ErrMagicLinkInvalid
	}
	delete(m.links, token)
	if !m.now().Before(link.expiresAt) {
		return "", ErrMagicLinkInvalid
	}
	return link.email, nil
}

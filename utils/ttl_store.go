package utils

import (
	"context"
	"sync"
	"time"
)

// ttlSet is a set of short-lived keys. It lives in Redis when Redis is
// configured and in process memory otherwise (single instance only).
type ttlSet struct {
	prefix  string
	mu      sync.Mutex
	entries map[string]time.Time
}

func newTTLSet(prefix string) *ttlSet {
	return &ttlSet{prefix: prefix, entries: map[string]time.Time{}}
}

func (s *ttlSet) add(key string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, s.prefix+key, "1", ttl).Err()
		return
	}
	s.mu.Lock()
	s.sweepLocked()
	s.entries[key] = time.Now().Add(ttl)
	s.mu.Unlock()
}

func (s *ttlSet) has(key string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, s.prefix+key).Result()
		// fail open on Redis errors
		return err == nil && n > 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	return ok && time.Now().Before(exp)
}

// take removes key and reports whether it was present and unexpired.
func (s *ttlSet) take(key string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := rc.GetDel(ctx, s.prefix+key).Result()
		return err == nil && v != ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[key]
	delete(s.entries, key)
	return ok && time.Now().Before(exp)
}

func (s *ttlSet) sweepLocked() {
	now := time.Now()
	for k, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, k)
		}
	}
}

var (
	revokedTokens = newTTLSet("jwt:blacklist:")
	oauthStates   = newTTLSet("oauth:state:")
)

// BlacklistToken revokes a token until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	revokedTokens.add(token, time.Until(expiresAt))
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	return revokedTokens.has(token)
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	oauthStates.add(state, ttl)
}

// ConsumeState validates and removes a state token. Each state is single use.
func ConsumeState(state string) bool {
	return oauthStates.take(state)
}

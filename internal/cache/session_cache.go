package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irfndi/capm-lab-go/internal/models"
)

// ErrSessionNotFound is returned when a session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrConcurrentUpdate is returned when a session kept changing underneath
// an update until the retry budget ran out.
var ErrConcurrentUpdate = errors.New("session modified concurrently")

// maxUpdateRetries bounds the optimistic retries of RedisSessionStore.Update.
const maxUpdateRetries = 16

// SessionStore persists lab sessions between interactions. Update applies
// fn to the stored session and saves the result as one atomic step.
type SessionStore interface {
	Get(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, id string, fn func(*models.Session)) (*models.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionCacheStats tracks cache performance metrics
type SessionCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

type statsCounter struct {
	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

func (s *statsCounter) hit()  { s.hits.Add(1) }
func (s *statsCounter) miss() { s.misses.Add(1) }
func (s *statsCounter) set()  { s.sets.Add(1) }

func (s *statsCounter) snapshot() SessionCacheStats {
	return SessionCacheStats{Hits: s.hits.Load(), Misses: s.misses.Load(), Sets: s.sets.Load()}
}

// RedisSessionStore keeps sessions in Redis as JSON with a sliding TTL.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	stats  *statsCounter
	prefix string
}

// NewRedisSessionStore creates a new Redis-based session store
func NewRedisSessionStore(redisClient *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		redis:  redisClient,
		ttl:    ttl,
		stats:  &statsCounter{},
		prefix: "capm_session:",
	}
}

// Get retrieves a session from Redis
func (c *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := c.redis.Get(ctx, c.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		c.stats.miss()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		c.stats.miss()
		return nil, fmt.Errorf("redis error getting session %s: %w", id, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		c.stats.miss()
		return nil, fmt.Errorf("error deserializing session %s: %w", id, err)
	}

	c.stats.hit()
	return &session, nil
}

// Save stores a session and refreshes its TTL
func (c *RedisSessionStore) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("error serializing session %s: %w", session.ID, err)
	}

	if err := c.redis.Set(ctx, c.prefix+session.ID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis error setting session %s: %w", session.ID, err)
	}

	c.stats.set()
	return nil
}

// Update applies fn under WATCH so a concurrent writer forces a retry
// instead of being overwritten.
func (c *RedisSessionStore) Update(ctx context.Context, id string, fn func(*models.Session)) (*models.Session, error) {
	key := c.prefix + id
	var updated *models.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("redis error getting session %s: %w", id, err)
		}

		var session models.Session
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("error deserializing session %s: %w", id, err)
		}
		fn(&session)

		out, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("error serializing session %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &session
		return nil
	}

	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := c.redis.Watch(ctx, txf, key)
		switch {
		case err == nil:
			c.stats.hit()
			c.stats.set()
			return updated, nil
		case errors.Is(err, redis.TxFailedErr):
			continue
		case errors.Is(err, ErrSessionNotFound):
			c.stats.miss()
			return nil, err
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrConcurrentUpdate, id)
}

// Delete removes a session
func (c *RedisSessionStore) Delete(ctx context.Context, id string) error {
	removed, err := c.redis.Del(ctx, c.prefix+id).Result()
	if err != nil {
		return fmt.Errorf("redis error deleting session %s: %w", id, err)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// GetStats returns a copy of the cache statistics
func (c *RedisSessionStore) GetStats() SessionCacheStats {
	return c.stats.snapshot()
}

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stats   *statsCounter
	now     func() time.Time
}

// NewMemorySessionStore creates an in-process session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stats:   &statsCounter{},
		now:     time.Now,
	}
}

// Get returns a copy of the stored session.
func (m *MemorySessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.now().After(entry.expiresAt) {
		m.stats.miss()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	m.stats.hit()
	session := entry.session
	return &session, nil
}

// Save stores a copy of session and refreshes its TTL.
func (m *MemorySessionStore) Save(ctx context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[session.ID] = memoryEntry{session: *session, expiresAt: m.now().Add(m.ttl)}
	m.stats.set()
	return nil
}

// Update applies fn to the stored session while holding the store lock.
func (m *MemorySessionStore) Update(ctx context.Context, id string, fn func(*models.Session)) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[id]
	if !ok || now.After(entry.expiresAt) {
		m.stats.miss()
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	m.stats.hit()

	session := entry.session
	fn(&session)
	m.entries[id] = memoryEntry{session: session, expiresAt: now.Add(m.ttl)}
	m.stats.set()

	out := session
	return &out, nil
}

// Delete removes a session.
func (m *MemorySessionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.entries, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemorySessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

// GetStats returns a copy of the store statistics
func (m *MemorySessionStore) GetStats() SessionCacheStats {
	return m.stats.snapshot()
}

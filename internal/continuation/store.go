package continuation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists controller state between requests. Lock gives one caller
// exclusive use of a search until the returned release func runs.
type Store interface {
	Load(ctx context.Context, searchID string) (State, error)
	Save(ctx context.Context, state State) error
	Lock(ctx context.Context, searchID string) (func(), error)
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	locks   map[string]struct{}
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, searchID string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[searchID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	if s.ttl > 0 && s.now().After(e.expiresAt) {
		delete(s.entries, searchID)
		return State{}, ErrSessionNotFound
	}
	return e.state, nil
}

func (s *MemoryStore) Save(_ context.Context, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// drop expired sessions while we hold the lock anyway
	now := s.now()
	for id, e := range s.entries {
		if s.ttl > 0 && now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[state.SearchParams.SearchID] = memoryEntry{state: state, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Lock(_ context.Context, searchID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.locks[searchID]; held {
		return nil, ErrLoadInProgress
	}
	s.locks[searchID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.locks, searchID)
		s.mu.Unlock()
	}, nil
}

const (
	redisKeyPrefix = "hotelsearch:session:"
	// DefaultLockTTL applies when no lock TTL is given. A lock must outlive
	// the longest load-more request it guards.
	DefaultLockTTL = 30 * time.Second
)

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps sessions in Redis so any instance can continue a search.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
	token   func() string
}

// NewRedisStore keeps sessions for ttl and holds load-more locks for lockTTL,
// which should be at least the request timeout.
func NewRedisStore(client *redis.Client, ttl, lockTTL time.Duration, token func() string) *RedisStore {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &RedisStore{client: client, ttl: ttl, lockTTL: lockTTL, token: token}
}

// NewRedisClient parses a redis:// or rediss:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

func (s *RedisStore) Load(ctx context.Context, searchID string) (State, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+searchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrSessionNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("load session %s: %w", searchID, err)
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode session %s: %w", searchID, err)
	}
	return state, nil
}

func (s *RedisStore) Save(ctx context.Context, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	id := state.SearchParams.SearchID
	if err := s.client.Set(ctx, redisKeyPrefix+id, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Lock(ctx context.Context, searchID string) (func(), error) {
	key := redisKeyPrefix + searchID + ":lock"
	token := s.token()
	ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("lock session %s: %w", searchID, err)
	}
	if !ok {
		return nil, ErrLoadInProgress
	}
	return func() {
		// released even after the request context is done
		_ = releaseLock.Run(context.Background(), s.client, []string{key}, token).Err()
	}, nil
}

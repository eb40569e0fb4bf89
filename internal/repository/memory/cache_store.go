package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/yourusername/gabarita-api/internal/pkg/errors"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time // нулевое значение - без срока
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// CacheStore - in-memory реализация CacheRepository для драйвера memory и тестов
type CacheStore struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCacheStore создает пустой кеш
func NewCacheStore() *CacheStore {
	return &CacheStore{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *CacheStore) expiry(expiration time.Duration) time.Time {
	if expiration <= 0 {
		return time.Time{}
	}
	return c.now().Add(expiration)
}

// get возвращает живую запись; вызывается под мьютексом
func (c *CacheStore) get(key string) (cacheEntry, bool) {
	e, ok := c.entries[key]
	if !ok {
		return cacheEntry{}, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return cacheEntry{}, false
	}
	return e, true
}

// Set сохраняет значение
func (c *CacheStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: fmt.Sprint(value), expiresAt: c.expiry(expiration)}
	return nil
}

// Get возвращает значение или apperrors.ErrNotFound
func (c *CacheStore) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(key)
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return e.value, nil
}

// Delete удаляет ключ
func (c *CacheStore) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Increment увеличивает счетчик, сохраняя срок жизни ключа
func (c *CacheStore) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _ := c.get(key)
	var n int64
	if e.value != "" {
		parsed, err := strconv.ParseInt(e.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value of %s is not an integer: %w", key, err)
		}
		n = parsed
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	c.entries[key] = e
	return n, nil
}

// Expire задает срок жизни ключа
func (c *CacheStore) Expire(ctx context.Context, key string, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.get(key)
	if !ok {
		return nil
	}
	e.expiresAt = c.expiry(expiration)
	c.entries[key] = e
	return nil
}

// SetJSON сохраняет значение в JSON
func (c *CacheStore) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(data), expiration)
}

// GetJSON читает значение из JSON
func (c *CacheStore) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Ping всегда успешен
func (c *CacheStore) Ping(ctx context.Context) error {
	return nil
}

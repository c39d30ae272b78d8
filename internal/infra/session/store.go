// Package session provides the storage behind cookie sessions and the flash
// messages shown on the upload form.
package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/redis/go-redis/v9"

	"ocr2docx/internal/config"
	"ocr2docx/internal/infra/logging"
)

const flashKey = "flash"

// NewStorage returns Redis-backed storage when a Redis host is configured and
// in-memory storage otherwise. A Redis store that cannot be initialised also
// falls back to memory.
func NewStorage(cfg config.Config) fiber.Storage {
	var store fiber.Storage = memoryStorage.New()
	if cfg.Session.RedisHost == "" {
		logging.Info("Using memory for session storage")
		return store
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Redis session store init panicked, falling back to memory", "panic", r)
			}
		}()
		store = redisStorage.New(redisStorage.Config{
			Addrs:    []string{cfg.Session.RedisHost},
			Database: cfg.Session.RedisDB,
		})
		logging.Info("Using Redis for session storage", "addr", cfg.Session.RedisHost, "db", cfg.Session.RedisDB)
	}()
	return store
}

// NewRedisClient returns a client for the configured session Redis, or nil
// when sessions are kept in memory.
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.Session.RedisHost == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: cfg.Session.RedisHost,
		DB:   cfg.Session.RedisDB,
	})
}

// Ping reports whether rdb answers within timeout. A nil client is healthy.
func Ping(ctx context.Context, rdb *redis.Client, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(ctx).Err()
}

// Flash stores one-shot messages in the visitor's session.
type Flash struct {
	store *session.Store
}

// NewFlash builds a Flash over storage using the configured cookie name and
// expiration.
func NewFlash(cfg config.Config, storage fiber.Storage) *Flash {
	return &Flash{store: session.New(session.Config{
		Storage:        storage,
		Expiration:     cfg.Session.Expiration,
		KeyLookup:      "cookie:" + cfg.Session.CookieName,
		CookieHTTPOnly: true,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
	})}
}

// Set queues msg for the next page view. Messages accumulate until popped.
func (f *Flash) Set(c *fiber.Ctx, msg string) error {
	sess, err := f.store.Get(c)
	if err != nil {
		return err
	}
	msgs, _ := sess.Get(flashKey).([]string)
	sess.Set(flashKey, append(msgs, msg))
	return sess.Save()
}

// Pop returns and clears the queued messages.
func (f *Flash) Pop(c *fiber.Ctx) ([]string, error) {
	sess, err := f.store.Get(c)
	if err != nil {
		return nil, err
	}
	msgs, _ := sess.Get(flashKey).([]string)
	if len(msgs) == 0 {
		return nil, nil
	}
	sess.Delete(flashKey)
	return msgs, sess.Save()
}

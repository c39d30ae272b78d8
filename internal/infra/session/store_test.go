package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocr2docx/internal/config"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Session.Expiration = time.Minute
	cfg.Session.CookieName = "test_session"
	return cfg
}

func TestNewStorage_MemoryWhenNoRedisHost(t *testing.T) {
	store := NewStorage(testConfig())
	_, ok := store.(*memoryStorage.Storage)
	assert.True(t, ok, "expected memory storage, got %T", store)
}

func TestNewStorage_RedisWhenReachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Session.RedisHost = mr.Addr()

	store := NewStorage(cfg)
	_, ok := store.(*redisStorage.Storage)
	require.True(t, ok, "expected redis storage, got %T", store)

	require.NoError(t, store.Set("k", []byte("v"), time.Minute))
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewStorage_FallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Session.RedisHost = "127.0.0.1:1"

	store := NewStorage(cfg)
	_, ok := store.(*memoryStorage.Storage)
	assert.True(t, ok, "expected memory fallback, got %T", store)
}

func TestRedisClientAndPing(t *testing.T) {
	assert.Nil(t, NewRedisClient(testConfig()))
	assert.NoError(t, Ping(context.Background(), nil, time.Second))

	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Session.RedisHost = mr.Addr()
	rdb := NewRedisClient(cfg)
	require.NotNil(t, rdb)
	defer rdb.Close()
	assert.NoError(t, Ping(context.Background(), rdb, time.Second))

	mr.Close()
	assert.Error(t, Ping(context.Background(), rdb, 200*time.Millisecond))
}

func TestFlash_SetThenPopOnce(t *testing.T) {
	cfg := testConfig()
	flash := NewFlash(cfg, memoryStorage.New())

	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		if err := flash.Set(c, "first"); err != nil {
			return err
		}
		if err := flash.Set(c, "second"); err != nil {
			return err
		}
		return c.Redirect("/")
	})
	app.Get("/", func(c *fiber.Ctx) error {
		msgs, err := flash.Pop(c)
		if err != nil {
			return err
		}
		return c.SendString(strings.Join(msgs, "|"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == cfg.Session.CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "session cookie not set")

	get := func() string {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		return string(body)
	}
	assert.Equal(t, "first|second", get())
	assert.Equal(t, "", get())
}

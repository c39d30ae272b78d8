package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"
	"github.com/valyala/fasthttp"

	"ocr2docx/internal/config"
	"ocr2docx/internal/infra/logging"
	"ocr2docx/internal/infra/session"
)

const (
	LivenessPath  = "/ops/health"
	ReadinessPath = "/ops/ready"
)

// Register attaches global middleware to the app. rdb may be nil when
// sessions are kept in memory.
func Register(app *fiber.App, cfg config.Config, rdb *redis.Client) {
	app.Use(recover.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  LivenessPath,
		ReadinessEndpoint: ReadinessPath,
		ReadinessProbe: func(c *fiber.Ctx) bool {
			if err := session.Ping(context.Background(), rdb, time.Second); err != nil {
				logging.Warn("Readiness check failed", "error", err)
				return false
			}
			return true
		},
	}))

	if cfg.Server.SecretKey != "" {
		app.Use(encryptcookie.New(encryptcookie.Config{
			Key: CookieKey(cfg.Server.SecretKey),
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logging.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return err
	})
}

// CookieKey derives the 32-byte cookie encryption key from the secret.
func CookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// SealCookies encrypts the response cookies of a request that never passed
// through the encryptcookie middleware, such as one answered from the error
// handler. It is a no-op without a secret.
func SealCookies(c *fiber.Ctx, secret string) error {
	if secret == "" {
		return nil
	}
	key := CookieKey(secret)

	var err error
	c.Response().Header.VisitAllCookie(func(name, _ []byte) {
		if err != nil {
			return
		}
		cookie := fasthttp.Cookie{}
		cookie.SetKeyBytes(name)
		if !c.Response().Header.Cookie(&cookie) {
			return
		}
		var sealed string
		sealed, err = encryptcookie.EncryptCookie(string(cookie.Value()), key)
		if err != nil {
			return
		}
		cookie.SetValue(sealed)
		c.Response().Header.SetCookie(&cookie)
	})
	return err
}

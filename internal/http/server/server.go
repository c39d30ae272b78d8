package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"ocr2docx/internal/config"
	"ocr2docx/internal/http/handlers"
	"ocr2docx/internal/http/middleware"
	"ocr2docx/internal/infra/logging"
	"ocr2docx/internal/infra/scratch"
	"ocr2docx/internal/infra/session"
	"ocr2docx/internal/infra/vision"
	"ocr2docx/internal/intake"
)

// Deps are the collaborators of the HTTP app. Nil fields are built from
// Config.
type Deps struct {
	Config    config.Config
	Redis     *redis.Client
	OCR       handlers.Recognizer
	Workspace *scratch.Workspace
	Storage   fiber.Storage
}

// New creates and configures the Fiber app.
func New(deps Deps) *fiber.App {
	cfg := deps.Config
	if deps.OCR == nil {
		deps.OCR = vision.NewClient(cfg.Vision)
	}
	if deps.Workspace == nil {
		deps.Workspace = scratch.New(cfg.Storage.UploadDir)
	}
	if deps.Storage == nil {
		deps.Storage = session.NewStorage(cfg)
	}

	bodyLimit := cfg.Server.BodyLimitMB
	if bodyLimit <= 0 {
		bodyLimit = 20
	}

	// svc is assigned below; the error handler needs it for uploads refused by
	// the body limit, which never reach a route.
	var svc *handlers.ConvertService

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			if code == fiber.StatusRequestEntityTooLarge && c.Method() == fiber.MethodPost && c.Path() == "/" && svc != nil {
				logging.Warn("Upload exceeds body limit", "limit_mb", bodyLimit, "content_length", c.Request().Header.ContentLength())
				if err := svc.RejectOversized(c); err != nil {
					return err
				}
				return middleware.SealCookies(c, cfg.Server.SecretKey)
			}

			logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	middleware.Register(app, cfg, deps.Redis)

	svc = handlers.NewConvertService(
		intake.New(deps.Workspace),
		deps.OCR,
		session.NewFlash(cfg, deps.Storage),
	)
	app.Get("/", svc.HandleIndex)
	app.Post("/", svc.HandleUpload)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ocr2docx/internal/docx"
	"ocr2docx/internal/domain"
	"ocr2docx/internal/infra/logging"
	"ocr2docx/internal/infra/session"
	"ocr2docx/internal/intake"
)

// User-facing failure messages.
const (
	MsgTooLarge   = "The image is too large."
	MsgOCRFailed  = "Could not process the image."
	MsgTransport  = "Azure Computer Vision encountered an HTTP error."
	MsgTimeout    = "The OCR service did not finish in time."
	MsgUnexpected = "An unexpected error occurred."
)

//go:embed templates/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexView struct {
	Messages []string
	Field    string
	Accept   string
	Allowed  string
}

// Recognizer turns image bytes into text.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (domain.ExtractedText, error)
}

// ConvertService bundles the dependencies of the upload form.
type ConvertService struct {
	Intake *intake.Intake
	OCR    Recognizer
	Flash  *session.Flash
}

// NewConvertService creates a new ConvertService instance.
func NewConvertService(in *intake.Intake, ocr Recognizer, flash *session.Flash) *ConvertService {
	return &ConvertService{Intake: in, OCR: ocr, Flash: flash}
}

// HandleIndex renders the upload form with any pending flash messages.
func (svc *ConvertService) HandleIndex(c *fiber.Ctx) error {
	msgs, err := svc.Flash.Pop(c)
	if err != nil {
		logging.Warn("Failed to read flash messages", "error", err, "request_id", requestID(c))
	}

	accept := make([]string, len(intake.AllowedExtensions))
	for i, ext := range intake.AllowedExtensions {
		accept[i] = "." + ext
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexView{
		Messages: msgs,
		Field:    intake.FieldName,
		Accept:   strings.Join(accept, ","),
		Allowed:  strings.Join(intake.AllowedExtensions, ", "),
	}); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// HandleUpload converts the uploaded image into a .docx attachment. Every
// failure ends in a flash message and a redirect to the form; the request
// directory is removed on every path.
func (svc *ConvertService) HandleUpload(c *fiber.Ctx) error {
	// A body that is not multipart carries no file part.
	form, _ := c.MultipartForm()

	up, err := svc.Intake.Accept(form)
	if err != nil {
		return svc.fail(c, err)
	}
	defer func() {
		if err := up.Dir.Remove(); err != nil {
			logging.Warn("Failed to remove request directory", "dir", up.Dir.Path, "error", err)
		}
	}()

	// The request context is cancelled when the server shuts down, which stops
	// any polling still in flight.
	ctx, cancel := context.WithCancel(c.Context())
	defer cancel()

	name, body, err := svc.convert(ctx, up)
	if err != nil {
		return svc.fail(c, err)
	}

	logging.Info("Document generated", "filename", name, "upload", up.OriginalName, "bytes", len(body), "request_id", requestID(c))

	c.Attachment(name)
	c.Set(fiber.HeaderContentType, docx.ContentType)
	return c.Send(body)
}

// convert runs OCR on the stored upload, writes the document next to it and
// returns the document name and bytes.
func (svc *ConvertService) convert(ctx context.Context, up *intake.Upload) (string, []byte, error) {
	image, err := os.ReadFile(up.Path)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}

	text, err := svc.OCR.Recognize(ctx, image)
	if err != nil {
		return "", nil, err
	}

	name := up.DocumentName()
	doc := docx.New()
	doc.AddParagraph(string(text))

	out := up.Dir.Join(name)
	if err := doc.Save(out); err != nil {
		return "", nil, fmt.Errorf("save document: %w", err)
	}
	body, err := os.ReadFile(out)
	if err != nil {
		return "", nil, fmt.Errorf("read document: %w", err)
	}
	return name, body, nil
}

// Message returns the flash message shown for err.
func Message(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, domain.ErrOCRFailed):
		return MsgOCRFailed
	case errors.Is(err, domain.ErrTransport):
		return MsgTransport
	case errors.Is(err, domain.ErrTimeout):
		return MsgTimeout
	default:
		return MsgUnexpected
	}
}

// RejectOversized answers an upload refused for exceeding the body limit the
// same way as any other validation failure.
func (svc *ConvertService) RejectOversized(c *fiber.Ctx) error {
	return svc.fail(c, &domain.ValidationError{Message: MsgTooLarge})
}

func (svc *ConvertService) fail(c *fiber.Ctx, err error) error {
	msg := Message(err)
	rid := requestID(c)

	var failure *domain.OCRFailure
	switch {
	case errors.Is(err, domain.ErrValidation):
		logging.Info("Upload rejected", "reason", msg, "request_id", rid)
	case errors.As(err, &failure):
		logging.Warn("OCR job did not succeed", "status", failure.Status, "operation_id", failure.OperationID, "request_id", rid)
	case errors.Is(err, domain.ErrTimeout):
		logging.Warn("OCR job timed out", "error", err, "request_id", rid)
	default:
		logging.Error("Conversion failed", "kind", domain.Kind(err), "error", err, "request_id", rid)
	}

	if ferr := svc.Flash.Set(c, msg); ferr != nil {
		logging.Error("Failed to store flash message", "error", ferr, "request_id", rid)
	}
	return c.Redirect("/")
}

func requestID(c *fiber.Ctx) string {
	if id := c.GetRespHeader(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.Get(fiber.HeaderXRequestID)
}

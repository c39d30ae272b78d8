// Package intake validates uploaded images and stores them in a per-request
// scratch directory under a sanitized name.
package intake

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strings"

	"ocr2docx/internal/domain"
	"ocr2docx/internal/infra/scratch"
)

// FieldName is the multipart field carrying the image.
const FieldName = "file"

// AllowedExtensions lists the accepted image extensions, lower case.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "bmp", "gif"}

// User-facing validation messages.
var (
	MsgNoFilePart       = "No file part."
	MsgNoFileSelected   = "No file selected."
	MsgDisallowedFormat = "Allowed file types are " + strings.Join(AllowedExtensions, ", ") + "."
)

// Upload is an accepted image persisted in its request directory.
type Upload struct {
	OriginalName string
	Filename     string
	Ext          string
	Path         string
	Size         int64
	Dir          *scratch.RequestDir
}

// DocumentName is the output filename: the stored name with its extension
// replaced by .docx.
func (u *Upload) DocumentName() string {
	base := u.Filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base + ".docx"
}

// Intake accepts uploads into a scratch workspace.
type Intake struct {
	ws *scratch.Workspace
}

// New returns an Intake storing files under ws.
func New(ws *scratch.Workspace) *Intake {
	return &Intake{ws: ws}
}

// Extension returns the lower-cased substring after the last dot, or "" when
// the name has no dot.
func Extension(filename string) string {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Allowed reports whether filename carries one of AllowedExtensions.
func Allowed(filename string) bool {
	ext := Extension(filename)
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Validate checks the multipart form and returns the image part. Errors are
// always *domain.ValidationError.
func Validate(form *multipart.Form) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, &domain.ValidationError{Message: MsgNoFilePart}
	}
	files := form.File[FieldName]
	if len(files) == 0 {
		// A file input submitted without a selection arrives as a plain value.
		if _, ok := form.Value[FieldName]; ok {
			return nil, &domain.ValidationError{Message: MsgNoFileSelected}
		}
		return nil, &domain.ValidationError{Message: MsgNoFilePart}
	}
	fh := files[0]
	if fh.Filename == "" {
		return nil, &domain.ValidationError{Message: MsgNoFileSelected}
	}
	if !Allowed(fh.Filename) {
		return nil, &domain.ValidationError{Message: MsgDisallowedFormat}
	}
	return fh, nil
}

// Accept validates the form and writes the image into a new request
// directory. On error nothing is left on disk.
func (in *Intake) Accept(form *multipart.Form) (*Upload, error) {
	fh, err := Validate(form)
	if err != nil {
		return nil, err
	}

	ext := Extension(fh.Filename)
	name := SanitizeFilename(fh.Filename)
	if name == "" || Extension(name) != ext {
		name = "image." + ext
	}

	dir, err := in.ws.Open()
	if err != nil {
		return nil, err
	}

	up := &Upload{
		OriginalName: fh.Filename,
		Filename:     name,
		Ext:          ext,
		Path:         dir.Join(name),
		Dir:          dir,
	}
	up.Size, err = save(fh, up.Path)
	if err != nil {
		_ = dir.Remove()
		return nil, err
	}
	return up, nil
}

func save(fh *multipart.FileHeader, path string) (int64, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create scratch file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write scratch file: %w", err)
	}
	return n, nil
}

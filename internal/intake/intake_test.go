package intake

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocr2docx/internal/domain"
	"ocr2docx/internal/infra/scratch"
)

type part struct {
	field    string
	filename string
	body     string
	isFile   bool
}

func buildForm(t *testing.T, parts ...part) *multipart.Form {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.isFile {
			fw, err := w.CreateFormFile(p.field, p.filename)
			require.NoError(t, err)
			_, err = fw.Write([]byte(p.body))
			require.NoError(t, err)
			continue
		}
		require.NoError(t, w.WriteField(p.field, p.body))
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.png", "a.JPG", "a.jpeg", "scan.final.Bmp", "x.gif"} {
		assert.True(t, Allowed(name), name)
	}
	for _, name := range []string{"a.pdf", "png", "a.png.exe", "a.", "", "a.tiff"} {
		assert.False(t, Allowed(name), name)
	}
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name string
		form *multipart.Form
		msg  string
	}{
		{"nil form", nil, MsgNoFilePart},
		{"no file field", buildForm(t, part{field: "other", body: "x"}), MsgNoFilePart},
		{"empty selection", buildForm(t, part{field: FieldName, body: ""}), MsgNoFileSelected},
		{"disallowed extension", buildForm(t, part{field: FieldName, filename: "notes.txt", body: "x", isFile: true}), MsgDisallowedFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.form)
			require.Error(t, err)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.msg, verr.Message)
		})
	}
	assert.Equal(t, "Allowed file types are png, jpg, jpeg, bmp, gif.", MsgDisallowedFormat)
}

func TestAccept_WritesSanitizedFileIntoRequestDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	in := New(scratch.New(root))

	form := buildForm(t, part{field: FieldName, filename: "My Scan.PNG", body: "image-bytes", isFile: true})
	up, err := in.Accept(form)
	require.NoError(t, err)

	assert.Equal(t, "My Scan.PNG", up.OriginalName)
	assert.Equal(t, "My_Scan.PNG", up.Filename)
	assert.Equal(t, "png", up.Ext)
	assert.Equal(t, "My_Scan.docx", up.DocumentName())
	assert.Equal(t, int64(len("image-bytes")), up.Size)
	assert.True(t, strings.HasPrefix(up.Path, root))

	data, err := os.ReadFile(up.Path)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	require.NoError(t, up.Dir.Remove())
	assert.NoFileExists(t, up.Path)
}

func TestAccept_SameNameDoesNotCollide(t *testing.T) {
	in := New(scratch.New(t.TempDir()))

	a, err := in.Accept(buildForm(t, part{field: FieldName, filename: "scan.png", body: "first", isFile: true}))
	require.NoError(t, err)
	b, err := in.Accept(buildForm(t, part{field: FieldName, filename: "scan.png", body: "second", isFile: true}))
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	da, _ := os.ReadFile(a.Path)
	db, _ := os.ReadFile(b.Path)
	assert.Equal(t, "first", string(da))
	assert.Equal(t, "second", string(db))
}

func TestAccept_FallsBackWhenSanitizingDropsTheName(t *testing.T) {
	in := New(scratch.New(t.TempDir()))
	up, err := in.Accept(buildForm(t, part{field: FieldName, filename: "файл.jpeg", body: "x", isFile: true}))
	require.NoError(t, err)
	assert.Equal(t, "image.jpeg", up.Filename)
	assert.Equal(t, "image.docx", up.DocumentName())
}

func TestAccept_ValidationLeavesNothingOnDisk(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	in := New(scratch.New(root))

	_, err := in.Accept(buildForm(t, part{field: FieldName, filename: "evil.exe", body: "x", isFile: true}))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoDirExists(t, root)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{`C:\Users\me\scan.png`, "C_Users_me_scan.png"},
		{"i contain cool \u00fcml\u00e4uts.txt", "i_contain_cool_umlauts.txt"},
		{"  .hidden.png ", "hidden.png"},
		{"NUL.png", "_NUL.png"},
		{"<script>.gif", "script.gif"},
		{"", ""},
	}
	for _, tc := range tests {
		got := SanitizeFilename(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.NotContains(t, got, "/")
		assert.NotContains(t, got, `\`)
	}
}

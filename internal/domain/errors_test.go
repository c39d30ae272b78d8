package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainErrors_MatchTheirSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
		kind     string
	}{
		{&ValidationError{Message: "No file part."}, ErrValidation, "validation"},
		{&OCRFailure{OperationID: "op", Status: "failed"}, ErrOCRFailed, "ocr_failed"},
		{&TransportError{Op: "submit", StatusCode: 401, Message: "denied"}, ErrTransport, "transport"},
		{&TimeoutError{OperationID: "op", Attempts: 3, LastStatus: "running"}, ErrTimeout, "timeout"},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("convert: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel)
		assert.Equal(t, tc.kind, Kind(wrapped))
		assert.NotEmpty(t, tc.err.Error())
	}

	assert.Equal(t, "unexpected", Kind(errors.New("boom")))
	assert.Equal(t, "", Kind(nil))
}

func TestDomainErrors_AreDistinct(t *testing.T) {
	assert.False(t, errors.Is(&OCRFailure{Status: "failed"}, ErrTransport))
	assert.False(t, errors.Is(&TransportError{Op: "poll"}, ErrOCRFailed))
	assert.False(t, errors.Is(&ValidationError{}, ErrTimeout))
}

func TestTransportError_UnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &TransportError{Op: "submit", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "submit: dial tcp: connection refused", err.Error())

	withCode := &TransportError{Op: "submit", StatusCode: 400, Code: "InvalidImageSize", Message: "too small"}
	assert.Equal(t, "submit: status 400 (InvalidImageSize): too small", withCode.Error())
}

func TestTimeoutError_UnwrapsContextError(t *testing.T) {
	err := &TimeoutError{OperationID: "op", Err: context.DeadlineExceeded}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestTimeoutError_BeforeOperationAccepted(t *testing.T) {
	err := &TimeoutError{Err: context.DeadlineExceeded}
	assert.Equal(t, "ocr submission timed out: context deadline exceeded", err.Error())
	assert.NotContains(t, err.Error(), `""`)
	assert.Equal(t, "ocr submission timed out", (&TimeoutError{}).Error())
	assert.Equal(t, KindTimeout, Kind(err))
}

func TestJobStatus(t *testing.T) {
	assert.True(t, JobStatus("notStarted").InProgress())
	assert.True(t, JobStatus("NotStarted").InProgress())
	assert.True(t, JobStatus("RUNNING").InProgress())
	assert.False(t, JobStatus("failed").InProgress())
	assert.False(t, JobStatus("succeeded").InProgress())

	assert.True(t, JobStatus("Succeeded").Succeeded())
	assert.False(t, JobStatus("failed").Succeeded())
}

func TestExtractedText(t *testing.T) {
	text := JoinLines([]string{"Hello", "World"})
	assert.Equal(t, ExtractedText("Hello\nWorld\n"), text)
	assert.Equal(t, []string{"Hello", "World"}, text.Lines())

	assert.Equal(t, ExtractedText(""), JoinLines(nil))
	assert.Nil(t, ExtractedText("").Lines())
}

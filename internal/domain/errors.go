package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every *ValidationError.
	ErrValidation = errors.New("invalid upload")
	// ErrOCRFailed matches every *OCRFailure.
	ErrOCRFailed = errors.New("ocr job failed")
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("ocr service transport error")
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("ocr job timed out")
)

// ValidationError rejects an upload before any remote call. Message is shown
// to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// OCRFailure is a clean negative verdict: the remote job reached a terminal
// status other than succeeded.
type OCRFailure struct {
	OperationID string
	Status      string
}

func (e *OCRFailure) Error() string {
	return fmt.Sprintf("ocr operation %s finished with status %q", e.OperationID, e.Status)
}

func (e *OCRFailure) Is(target error) bool { return target == ErrOCRFailed }

// TransportError reports a failed exchange with the OCR service. StatusCode is
// zero when no HTTP response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: status %d (%s): %s", e.Op, e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, msg)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError reports that polling gave up before the job became terminal.
type TimeoutError struct {
	OperationID string
	Attempts    int
	LastStatus  string
	Err         error
}

func (e *TimeoutError) Error() string {
	if e.OperationID == "" {
		if e.Err != nil {
			return fmt.Sprintf("ocr submission timed out: %v", e.Err)
		}
		return "ocr submission timed out"
	}
	return fmt.Sprintf("ocr operation %s still %q after %d polls", e.OperationID, e.LastStatus, e.Attempts)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }

// Failure classes reported by Kind.
const (
	KindValidation = "validation"
	KindOCRFailed  = "ocr_failed"
	KindTransport  = "transport"
	KindTimeout    = "timeout"
	KindUnexpected = "unexpected"
)

// Kind names the failure class of err for logging.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrOCRFailed):
		return KindOCRFailed
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindUnexpected
	}
}

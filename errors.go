package htmlpdf

import (
	"errors"
	"fmt"
)

// Sentinel errors for render operations.
var (
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrTimedOut         = errors.New("render timed out")
	ErrNavigationFailed = errors.New("page navigation failed")
	ErrHTTPStatus       = errors.New("main request returned a failing status code")
	ErrTriggerTimeout   = errors.New("completion trigger timed out")
	ErrScript           = errors.New("page script error")

	// Resource errors.
	ErrLaunch     = errors.New("failed to launch browser")
	ErrTabOpen    = errors.New("failed to open browser tab")
	ErrPDFCapture = errors.New("PDF capture failed")
	ErrCleanup    = errors.New("failed to release browser resources")

	// Result errors.
	ErrPersist      = errors.New("failed to write PDF")
	ErrInvalidPDF   = errors.New("invalid PDF data")
	ErrInvalidPaper = errors.New("invalid paper size")
)

// HTTPStatusError reports a main-request response whose status code is fatal
// under the configured 4xx/5xx policy.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrHTTPStatus, e.StatusCode)
}

func (e *HTTPStatusError) Unwrap() error {
	return ErrHTTPStatus
}

// ScriptError carries the message of an exception thrown by page-side script
// evaluated on behalf of a trigger.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%v: %s", ErrScript, e.Message)
}

func (e *ScriptError) Unwrap() error {
	return ErrScript
}

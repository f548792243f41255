package main

import (
	"context"
	"errors"
	"os"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/dateutil"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
)

// Exit codes for the htmlpdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Every input rendered
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser could not be launched or reached
	ExitRender  = 5 // Page failed to load, settle or print
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, htmlpdf.ErrLaunch) ||
		errors.Is(err, htmlpdf.ErrTabOpen) ||
		errors.Is(err, htmlpdf.ErrCleanup) {
		return ExitBrowser
	}

	if errors.Is(err, htmlpdf.ErrTimedOut) ||
		errors.Is(err, htmlpdf.ErrNavigationFailed) ||
		errors.Is(err, htmlpdf.ErrHTTPStatus) ||
		errors.Is(err, htmlpdf.ErrTriggerTimeout) ||
		errors.Is(err, htmlpdf.ErrScript) ||
		errors.Is(err, htmlpdf.ErrPDFCapture) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitRender
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, htmlpdf.ErrPersist) ||
		errors.Is(err, ErrReadInput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, fileutil.ErrUnsupportedInput) ||
		errors.Is(err, htmlpdf.ErrEmptyContent) ||
		errors.Is(err, htmlpdf.ErrInvalidPaper) ||
		errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	return ExitGeneral
}

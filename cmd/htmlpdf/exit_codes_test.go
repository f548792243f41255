package main

// Notes:
// - exitCodeFor: every sentinel from htmlpdf, config, dateutil and fileutil
//   is mapped, plus wrapped forms to verify the errors.Is chain.
// - Exit code constants follow Unix conventions and stay below 126.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	htmlpdf "github.com/alnah/go-htmlpdf"
	"github.com/alnah/go-htmlpdf/internal/config"
	"github.com/alnah/go-htmlpdf/internal/dateutil"
	"github.com/alnah/go-htmlpdf/internal/fileutil"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		// Browser errors (exit 4)
		{"launch", htmlpdf.ErrLaunch, ExitBrowser},
		{"tab open", htmlpdf.ErrTabOpen, ExitBrowser},
		{"cleanup", htmlpdf.ErrCleanup, ExitBrowser},
		{"wrapped launch", fmt.Errorf("%w: exec: not found", htmlpdf.ErrLaunch), ExitBrowser},

		// Render errors (exit 5)
		{"timed out", htmlpdf.ErrTimedOut, ExitRender},
		{"navigation failed", htmlpdf.ErrNavigationFailed, ExitRender},
		{"http status", &htmlpdf.HTTPStatusError{StatusCode: 404}, ExitRender},
		{"trigger timeout", htmlpdf.ErrTriggerTimeout, ExitRender},
		{"script", &htmlpdf.ScriptError{Message: "boom"}, ExitRender},
		{"pdf capture", htmlpdf.ErrPDFCapture, ExitRender},
		{"deadline exceeded", context.DeadlineExceeded, ExitRender},
		{"batch failure", fmt.Errorf("1 of 3 render(s) failed: %w", htmlpdf.ErrTimedOut), ExitRender},

		// I/O errors (exit 3)
		{"not exist", os.ErrNotExist, ExitIO},
		{"permission", os.ErrPermission, ExitIO},
		{"persist", fmt.Errorf("%w: %w", htmlpdf.ErrPersist, os.ErrPermission), ExitIO},
		{"read input", ErrReadInput, ExitIO},
		{"no input", ErrNoInput, ExitIO},

		// Usage errors (exit 2)
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", config.ErrConfigParse, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"date format", dateutil.ErrInvalidDateFormat, ExitUsage},
		{"unsupported input", fileutil.ErrUnsupportedInput, ExitUsage},
		{"empty content", htmlpdf.ErrEmptyContent, ExitUsage},
		{"invalid paper", htmlpdf.ErrInvalidPaper, ExitUsage},
		{"usage", usageErrorf("bad"), ExitUsage},
		{"hinted usage", &hintedError{err: config.ErrConfigNotFound, hint: "x"}, ExitUsage},

		// Everything else (exit 1)
		{"unknown", errors.New("something else"), ExitGeneral},
		{"canceled", context.Canceled, ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestExitCodeConstants - Unix conventions
// ---------------------------------------------------------------------------

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	if ExitSuccess != 0 || ExitGeneral != 1 || ExitUsage != 2 {
		t.Errorf("standard codes changed: success=%d general=%d usage=%d", ExitSuccess, ExitGeneral, ExitUsage)
	}

	seen := map[int]string{}
	for name, code := range map[string]int{
		"ExitSuccess": ExitSuccess, "ExitGeneral": ExitGeneral, "ExitUsage": ExitUsage,
		"ExitIO": ExitIO, "ExitBrowser": ExitBrowser, "ExitRender": ExitRender,
	} {
		if code >= 126 {
			t.Errorf("%s = %d, must be below 126", name, code)
		}
		if other, ok := seen[code]; ok {
			t.Errorf("%s and %s share code %d", name, other, code)
		}
		seen[code] = name
	}
}

// Package fileutil classifies render inputs and handles the files around them.
package fileutil

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for file utility operations.
var (
	ErrExtensionEmpty         = errors.New("extension cannot be empty")
	ErrExtensionPathTraversal = errors.New("extension contains path separator or null byte")
	ErrUnsupportedInput       = errors.New("unsupported input")
)

// Kind is the type of a render input.
type Kind int

const (
	KindURL Kind = iota
	KindHTML
	KindMarkdown
	KindStdin
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindHTML:
		return "html"
	case KindMarkdown:
		return "markdown"
	case KindStdin:
		return "stdin"
	}
	return "unknown"
}

// Classify reports how an input argument should be rendered.
func Classify(input string) (Kind, error) {
	switch {
	case input == "-":
		return KindStdin, nil
	case IsURL(input):
		return KindURL, nil
	}
	switch strings.ToLower(filepath.Ext(input)) {
	case ".html", ".htm", ".xhtml":
		return KindHTML, nil
	case ".md", ".markdown":
		return KindMarkdown, nil
	}
	return 0, fmt.Errorf("%w: %s (expected URL, .html, .md or -)", ErrUnsupportedInput, input)
}

// FileURL converts a local path into an absolute file:// URL.
func FileURL(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path // Windows drive letters
	}
	return u.String(), nil
}

// OutputPath derives the PDF path for an input. URLs and stdin use
// fallback as the base name. An empty dir keeps the input's directory.
func OutputPath(input, dir, fallback string) string {
	base := fallback
	if k, err := Classify(input); err == nil && (k == KindHTML || k == KindMarkdown) {
		base = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		if dir == "" {
			dir = filepath.Dir(input)
		}
	}
	return filepath.Join(dir, base+".pdf")
}

// WriteTempFile creates a temporary file with the given content and
// extension inside dir (the system temp directory when empty).
// Returns the file path and a cleanup function to remove the file.
func WriteTempFile(dir, content, extension string) (path string, cleanup func(), err error) {
	if err := ValidateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp(dir, ".htmlpdf-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}
	return path, cleanup, nil
}

// ValidateExtension checks that the extension is safe for use in temp file names.
func ValidateExtension(extension string) error {
	if extension == "" {
		return ErrExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return ErrExtensionPathTraversal
	}
	return nil
}

// FileExists returns true if the path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// IsFilePath returns true if the string looks like a file path rather than
// a config name.
func IsFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// IsURL returns true if the string looks like a web URL. The scheme is
// matched case-insensitively.
func IsURL(s string) bool {
	return hasPrefixFold(s, "http://") || hasPrefixFold(s, "https://")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Package markdown turns Markdown sources into standalone HTML documents
// ready for the browser.
package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// ErrConversion indicates the Markdown could not be converted.
var ErrConversion = errors.New("markdown conversion failed")

// DefaultStyle is the chroma style used for code blocks.
const DefaultStyle = "github"

const documentCSS = `body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;line-height:1.5;color:#24292f;max-width:48em;margin:0 auto}
pre{padding:.8em;overflow:auto;border-radius:4px}
code{font-family:ui-monospace,Menlo,Consolas,monospace;font-size:.9em}
table{border-collapse:collapse}th,td{border:1px solid #d0d7de;padding:.3em .6em}
img{max-width:100%}
h1,h2,h3{page-break-after:avoid}pre,table,img{page-break-inside:avoid}
`

// Converter renders Markdown with GFM, footnotes and highlighted code.
// It is safe for concurrent use.
type Converter struct {
	md  goldmark.Markdown
	css string
}

// New returns a Converter whose code blocks use the named chroma style.
// Unknown names fall back to chroma's default style.
func New(style string) (*Converter, error) {
	if style == "" {
		style = DefaultStyle
	}

	var css strings.Builder
	css.WriteString(documentCSS)
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&css, styles.Get(style)); err != nil {
		return nil, fmt.Errorf("%w: writing %s style: %v", ErrConversion, style, err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Footnote,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
				highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
			),
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	return &Converter{md: md, css: css.String()}, nil
}

// ToHTML converts source into a complete HTML5 document titled title.
// Goldmark has no context support, so conversion runs in a goroutine and
// ctx only bounds the wait.
func (c *Converter) ToHTML(ctx context.Context, title string, source []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type result struct {
		doc string
		err error
	}
	done := make(chan result, 1)

	go func() {
		var body bytes.Buffer
		if err := c.md.Convert(source, &body); err != nil {
			done <- result{err: fmt.Errorf("%w: %v", ErrConversion, err)}
			return
		}
		done <- result{doc: c.wrap(title, body.String())}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.doc, r.err
	}
}

func (c *Converter) wrap(title, body string) string {
	var b strings.Builder
	b.Grow(len(body) + len(c.css) + 256)
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>\n")
	b.WriteString(c.css)
	b.WriteString("</style>\n</head>\n<body>\n")
	b.WriteString(body)
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

package htmlpdf

import (
	"fmt"
	"html"
	"strings"
)

// PrintOptions are handed to the browser's print-to-PDF call unchanged.
// Nil pointer fields leave the browser default in place. Dimensions are in inches.
type PrintOptions struct {
	Landscape           bool
	DisplayHeaderFooter bool
	PrintBackground     bool
	Scale               *float64
	PaperWidth          *float64
	PaperHeight         *float64
	MarginTop           *float64
	MarginBottom        *float64
	MarginLeft          *float64
	MarginRight         *float64
	PageRanges          string
	HeaderTemplate      string
	FooterTemplate      string
	PreferCSSPageSize   bool
}

// Paper size names accepted by PaperSize.
const (
	PaperLetter = "letter"
	PaperA4     = "a4"
	PaperLegal  = "legal"
)

// paperSizes maps names to width/height in inches (portrait).
var paperSizes = map[string][2]float64{
	PaperLetter: {8.5, 11},
	PaperA4:     {8.27, 11.69},
	PaperLegal:  {8.5, 14},
}

// PaperSize returns the portrait width and height in inches for a named size.
// Matching is case-insensitive.
func PaperSize(name string) (width, height float64, err error) {
	dims, ok := paperSizes[strings.ToLower(name)]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q (must be letter, a4, or legal)", ErrInvalidPaper, name)
	}
	return dims[0], dims[1], nil
}

// SetPaper sets paper dimensions from a named size and orientation.
func (o *PrintOptions) SetPaper(name string, landscape bool) error {
	w, h, err := PaperSize(name)
	if err != nil {
		return err
	}
	o.PaperWidth = floatPtr(w)
	o.PaperHeight = floatPtr(h)
	o.Landscape = landscape
	return nil
}

// SetMargins applies the same margin, in inches, to all four sides.
func (o *PrintOptions) SetMargins(inches float64) {
	o.MarginTop = floatPtr(inches)
	o.MarginBottom = floatPtr(inches)
	o.MarginLeft = floatPtr(inches)
	o.MarginRight = floatPtr(inches)
}

// Footer describes a simple page footer rendered by the browser.
type Footer struct {
	Position       string // "left", "center", "right" (default: "right")
	ShowPageNumber bool
	Date           string
	Text           string
}

// footerFontFamily is the font stack for generated footers.
const footerFontFamily = "sans-serif"

// FooterTemplate builds an HTML template for the browser's native footer.
// Supports pageNumber and totalPages placeholders via CSS classes.
func FooterTemplate(f *Footer) string {
	if f == nil {
		return "<span></span>"
	}

	var parts []string

	if f.ShowPageNumber {
		parts = append(parts, `<span class="pageNumber"></span>/<span class="totalPages"></span>`)
	}
	if f.Date != "" {
		parts = append(parts, html.EscapeString(f.Date))
	}
	if f.Text != "" {
		parts = append(parts, html.EscapeString(f.Text))
	}

	if len(parts) == 0 {
		return "<span></span>"
	}

	textAlign := "right"
	switch strings.ToLower(f.Position) {
	case "left":
		textAlign = "left"
	case "center":
		textAlign = "center"
	}

	return fmt.Sprintf(`<div style="font-size: 10px; font-family: %s; color: #aaa; width: 100%%; text-align: %s; padding: 0 0.5in;">%s</div>`,
		footerFontFamily, textAlign, strings.Join(parts, " - "))
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

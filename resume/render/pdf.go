// Package render turns a resume document into a PDF.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"

	"cv-analyzer/resume/model"
)

// ErrRender wraps any PDF generation failure.
var ErrRender = errors.New("pdf render failed")

const (
	marginX      = 36.0
	marginTop    = 30.0
	marginBottom = 30.0
	bulletIndent = 12.0
	fontFamily   = "Helvetica"
)

// PDF renders doc as an A4 PDF.
func PDF(doc model.Document) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %v", ErrRender, r)
		}
	}()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator("cv-analyzer", true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	w := &writer{pdf: pdf, tr: tr}
	w.line("name", doc.FullName)
	if doc.Headline != "" {
		w.line("subtitle", doc.Headline)
	}
	if doc.ContactLine != "" {
		w.line("subtitle", doc.ContactLine)
	}
	pdf.Ln(8)
	w.rule()

	if doc.Summary != "" {
		w.section("Professional Summary")
		w.line("body", doc.Summary)
	}
	if len(doc.Skills) > 0 {
		w.section("Core Skills")
		w.line("body", strings.Join(doc.Skills, ", "))
	}
	w.bulletSection("Experience", doc.Experience)
	w.bulletSection("Projects", doc.Projects)
	w.bulletSection("Education", doc.Education)
	w.bulletSection("AI Suggested Impact Bullets", doc.SuggestedBullets)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

type writer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *writer) apply(name string) TextStyle {
	style := StyleMap[name]
	fontStyle := ""
	if style.Bold {
		fontStyle = "B"
	}
	w.pdf.SetFont(fontFamily, fontStyle, style.Size)
	r, g, b := hexColor(style.Color)
	w.pdf.SetTextColor(r, g, b)
	return style
}

func (w *writer) line(styleName, text string) {
	style := w.apply(styleName)
	w.pdf.MultiCell(0, style.Leading, w.tr(text), "", "L", false)
}

func (w *writer) section(title string) {
	w.pdf.Ln(10)
	style := w.apply("sectionHeading")
	w.pdf.MultiCell(0, style.Leading, w.tr(title), "", "L", false)
	w.pdf.Ln(6)
}

func (w *writer) bulletSection(title string, items []string) {
	if len(items) == 0 {
		return
	}
	w.section(title)
	style := w.apply("body")
	left, _, _, _ := w.pdf.GetMargins()
	for _, item := range items {
		w.pdf.SetX(left + bulletIndent)
		w.pdf.MultiCell(0, style.Leading, w.tr("- "+item), "", "L", false)
		w.pdf.Ln(4)
	}
}

func (w *writer) rule() {
	r, g, b := hexColor(RuleColor)
	w.pdf.SetDrawColor(r, g, b)
	w.pdf.SetLineWidth(1)
	pageW, _ := w.pdf.GetPageSize()
	y := w.pdf.GetY()
	w.pdf.Line(marginX, y, pageW-marginX, y)
	w.pdf.Ln(4)
}

func hexColor(hex string) (int, int, int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil || len(strings.TrimPrefix(hex, "#")) != 6 {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)
}

// ExportFileName slugifies title into a download name.
func ExportFileName(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '_':
			b.WriteRune(r)
			dash = false
		case unicode.IsSpace(r) || r == '-':
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "resume"
	}
	return slug + ".pdf"
}

// Package extract turns uploaded CV files into bounded plain text.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"cv-analyzer/internal/shared/storage/object"
)

// MaxChars bounds every extracted text handed to the analyzer.
const MaxChars = 12000

const (
	// maxSourceBytes caps how much of a stored object is read.
	maxSourceBytes = 16 << 20
	// maxDocumentXML caps the inflated size of word/document.xml.
	maxDocumentXML = 32 << 20
)

type format int

const (
	formatText format = iota
	formatPDF
	formatDOCX
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")

	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// FromStore reads a stored upload and extracts its text.
func FromStore(ctx context.Context, store object.Store, key string, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: %w", key, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxSourceBytes))
	if err != nil {
		return "", fmt.Errorf("extract text key=%s: read: %w", key, err)
	}
	return Text(raw, fileName), nil
}

// Text extracts readable text from an upload. PDF and DOCX are parsed when
// recognised; anything else, or a failed parse, is decoded as UTF-8 with
// invalid bytes dropped. The result never exceeds MaxChars.
func Text(data []byte, fileName string) string {
	var (
		text string
		err  error
	)
	switch detect(data, fileName) {
	case formatPDF:
		text, err = pdfText(data)
	case formatDOCX:
		text, err = docxText(data)
	}
	if err != nil || strings.TrimSpace(text) == "" {
		text = DecodePermissive(data)
	}
	return Truncate(tidy(text), MaxChars)
}

// DecodePermissive decodes bytes as UTF-8, dropping invalid sequences.
func DecodePermissive(data []byte) string {
	return strings.ToValidUTF8(string(data), "")
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// detect prefers file content over the extension so a renamed file is
// still parsed correctly.
func detect(data []byte, fileName string) format {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return formatPDF
	case bytes.HasPrefix(data, zipMagic):
		if isDOCX(data) {
			return formatDOCX
		}
		return formatText
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	}
	return formatText
}

func pdfText(data []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parse panic: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func documentXML(data []byte) (*zip.File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return f, nil
		}
	}
	return nil, errors.New("word/document.xml not found")
}

func isDOCX(data []byte) bool {
	_, err := documentXML(data)
	return err == nil
}

// docxText walks word/document.xml, emitting a newline per paragraph or
// break and a tab per w:tab.
func docxText(data []byte) (string, error) {
	f, err := documentXML(data)
	if err != nil {
		return "", err
	}
	if f.UncompressedSize64 > maxDocumentXML {
		return "", fmt.Errorf("document.xml too large: %d bytes", f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxDocumentXML))
	var buf strings.Builder
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteByte('\t')
			}
		case xml.EndElement:
			if (t.Name.Local == "p" || t.Name.Local == "br") && buf.Len() > 0 {
				buf.WriteByte('\n')
			}
		}
	}
	return buf.String(), nil
}

// tidy normalises line endings, strips trailing spaces and collapses runs
// of blank lines.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

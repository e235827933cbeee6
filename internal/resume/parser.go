// Package resume extracts plain text from uploaded resume documents and asks
// the model for structured skill data.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// minExtractedChars is the threshold under which an extraction is flagged as
// a likely scanned or empty document.
const minExtractedChars = 400

// ErrUnsupportedType is returned for anything that is not a PDF or DOCX.
var ErrUnsupportedType = errors.New("unsupported file type (only pdf, docx)")

// ErrLooksScanned is returned when extraction yields too little text — most
// often an image-only scanned PDF.
var ErrLooksScanned = errors.New("extracted text looks empty (possibly a scanned PDF); upload a text-based PDF or DOCX")

var (
	blankLinesRE = regexp.MustCompile(`\n{3,}`)
	xmlTagRE     = regexp.MustCompile(`<[^>]*>`)
)

// ExtractText pulls plain text out of an uploaded document, dispatching on
// the filename extension, and normalises its whitespace.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("parse pdf: %w", err)
		}
		return NormalizeText(text), nil
	case ".docx":
		text, err := extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("parse docx: %w", err)
		}
		return NormalizeText(text), nil
	default:
		return "", ErrUnsupportedType
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func extractDOCX(data []byte) (string, error) {
	d, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer d.Close()
	return docxContentToText(d.Editable().GetContent()), nil
}

// docxContentToText flattens the document XML: paragraph ends become
// newlines, remaining markup is stripped.
func docxContentToText(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRE.ReplaceAllString(content, "")
	return html.UnescapeString(content)
}

// NormalizeText normalises newlines and whitespace without destroying the
// document structure: CRLF to LF, trailing spaces trimmed per line, runs of
// blank lines collapsed to one.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// LooksScannedOrEmpty reports whether extraction yielded too little text to
// be a real resume.
func LooksScannedOrEmpty(text string) bool {
	return len(strings.TrimSpace(text)) < minExtractedChars
}

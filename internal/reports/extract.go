// ABOUTME: Text extraction from uploaded report files.
// ABOUTME: PDFs via ledongthuc/pdf, plain text passed through, other binaries skipped.
package reports

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupported marks files whose text cannot be extracted (images, scans).
var ErrUnsupported = errors.New("no extractable text")

// ExtractText returns the readable text of a report file.
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file %s", filename)
	}
	if isPDF(data) {
		return extractPDF(data)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if isProbablyText(data) || ext == ".txt" || ext == ".csv" {
		return string(data), nil
	}
	return "", fmt.Errorf("%s: %w", filename, ErrUnsupported)
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// isProbablyText: no NULs and mostly printable bytes.
func isProbablyText(b []byte) bool {
	sample := b[:min(len(b), 4096)]
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

// Package docinfo reads cheap facts about uploaded documents for the upload
// ledger. Nothing here rejects a file.
package docinfo

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Inspect returns ledger metadata for data, or nil when the type is not one
// the portal advertises (pdf, jpeg, png).
func Inspect(contentType string, data []byte) map[string]any {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "application/pdf":
		pages, err := PDFPages(data)
		if err != nil {
			return map[string]any{"readable": false}
		}
		return map[string]any{"readable": true, "pages": pages}
	case "image/jpeg", "image/png":
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return map[string]any{"readable": false}
		}
		return map[string]any{"readable": true, "width": cfg.Width, "height": cfg.Height}
	}
	return nil
}

// PDFPages returns the page count from the document catalog.
func PDFPages(data []byte) (n int, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, errMalformed
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return doc.NumPage(), nil
}

var errMalformed = errors.New("docinfo: malformed pdf")

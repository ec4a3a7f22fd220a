// Package ocr reads handwritten or printed prescriptions with the Google Cloud
// Vision API.
//
// Images (PNG, JPEG, GIF, WebP, BMP) are sent to BatchAnnotateImages and
// documents (PDF, TIFF) to BatchAnnotateFiles, both with document text
// detection. Content is sent inline; nothing is uploaded to Cloud Storage.
//
// Credentials come from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to application
// default credentials.
//
// Synchronous Vision limits apply: 20MB per request and 5 pages per document.
package ocr

import (
	"bytes"
	"net/http"
	"time"
)

// Result is the recognized text of one prescription with metadata.
type Result struct {
	Text               string        `json:"text"`
	MimeType           string        `json:"mime_type"`
	PageCount          int           `json:"page_count"`
	Confidence         float32       `json:"confidence"` // mean over pages, 0 when unknown
	LanguageCodes      []string      `json:"language_codes,omitempty"`
	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

const (
	mimePDF  = "application/pdf"
	mimeTIFF = "image/tiff"
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// DetectMimeType sniffs the content type of an upload. TIFF is recognized by
// its byte-order header since net/http does not sniff it.
func DetectMimeType(data []byte) (string, error) {
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return mimeTIFF, nil
	}
	mt := http.DetectContentType(data)
	if mt == mimePDF || imageTypes[mt] {
		return mt, nil
	}
	return "", ErrUnsupportedFormat
}

// isFileType reports whether mt must go through file annotation.
func isFileType(mt string) bool {
	return mt == mimePDF || mt == mimeTIFF
}

package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned when the upload exceeds the synchronous Vision API limit.
	ErrFileTooLarge = errors.New("file size exceeds the maximum limit (20MB)")

	// ErrUnsupportedFormat is returned for content that is neither a supported image nor a PDF.
	ErrUnsupportedFormat = errors.New("unsupported file format: expected PNG, JPEG, GIF, WebP, BMP, TIFF or PDF")

	// ErrOCRFailed is returned when the Vision API rejects or fails the request.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when no Google credentials can be found.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrTooManyPages is returned for PDFs longer than the synchronous page limit.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when no text could be recognized.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError records the operation that failed while reading a prescription.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

// wrap returns err as an *OCRError unless it already is one.
func wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}
	return &OCRError{Op: op, Err: err, Details: details}
}

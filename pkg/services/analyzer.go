package services

import (
	"context"
	"io"

	"rxguardian/pkg/models"
)

// PrescriptionAnalyzer produces normalized medication records for a
// prescription transcript. Failures are reported as records, never as errors.
type PrescriptionAnalyzer interface {
	Analyze(ctx context.Context, text string) []models.MedicationRecord
}

// ReportRenderer writes an analysis as a downloadable document.
type ReportRenderer interface {
	Render(w io.Writer, records []models.MedicationRecord) error
}

// PrescriptionReader recovers the text of a scanned or photographed prescription.
type PrescriptionReader interface {
	ReadText(ctx context.Context, data io.Reader) (string, error)
}

// AnalysisExporter appends an analysis to an external store.
type AnalysisExporter interface {
	ExportAnalysis(ctx context.Context, analysisID string, records []models.MedicationRecord) (int, error)
}

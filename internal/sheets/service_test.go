package sheets

import (
	"testing"
	"time"

	"rxguardian/pkg/models"
)

func TestExtractSpreadsheetID(t *testing.T) {
	id, err := extractSpreadsheetID("https://docs.google.com/spreadsheets/d/1AbC-d_E2/edit#gid=0")
	if err != nil || id != "1AbC-d_E2" {
		t.Fatalf("extractSpreadsheetID() = %q, %v", id, err)
	}
	if _, err := extractSpreadsheetID("https://example.com/sheet"); err == nil {
		t.Fatal("expected error for non-sheets URL")
	}
}

func TestRows(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	records := []models.MedicationRecord{
		{
			MedicationName: "Metformin",
			PrescribedDose: "500mg",
			Frequency:      "BD",
			IsOverdose:     true,
			PrescribedCost: "30",
			CheaperAlternatives: []models.AlternativeRecord{
				{Name: "Glycomet (Cipla)", Cost: "18", Availability: "Widely available in India"},
				{Name: "Generic"},
			},
			Extra: map[string]any{"manufacturer": "USV", "batch": "B12"},
		},
	}

	rows := Rows("an-1", at, records)
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
	row := rows[0]
	if len(row) != len(Headers) {
		t.Fatalf("row has %d columns, headers %d", len(row), len(Headers))
	}
	want := map[int]any{
		0:  "an-1",
		1:  "2024-03-01 09:30:00",
		2:  "Metformin",
		5:  "Yes",
		8:  "Glycomet (Cipla) (Rs. 18) - Widely available in India; Generic",
		10: "batch=B12; manufacturer=USV",
	}
	for col, v := range want {
		if row[col] != v {
			t.Errorf("column %d = %v, want %v", col, row[col], v)
		}
	}
}

package report

import (
	"testing"

	"rxguardian/pkg/models"
)

func TestDigest(t *testing.T) {
	a := []models.MedicationRecord{{
		MedicationName: "Aspirin",
		Extra:          map[string]any{"b": 1, "a": "x"},
	}}
	b := []models.MedicationRecord{{
		MedicationName: "Aspirin",
		Extra:          map[string]any{"a": "x", "b": 1},
	}}
	c := []models.MedicationRecord{{MedicationName: "Metformin"}}

	da, err := Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, _ := Digest(b)
	dc, _ := Digest(c)

	if len(da) != 64 {
		t.Errorf("digest length = %d", len(da))
	}
	if da != db {
		t.Error("equal content must give equal digests")
	}
	if da == dc {
		t.Error("different content must give different digests")
	}
}

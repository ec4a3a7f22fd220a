package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"rxguardian/pkg/models"
)

var footerPattern = regexp.MustCompile(`\(Page (\d+) of (\d+)\)`)

func renderPlain(t *testing.T, records []models.MedicationRecord) string {
	t.Helper()
	r := NewRenderer(Options{
		Now: func() time.Time { return time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC) },
	})
	var buf bytes.Buffer
	if err := r.Render(&buf, records); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func sampleRecords(n int) []models.MedicationRecord {
	out := make([]models.MedicationRecord, n)
	for i := range out {
		out[i] = models.MedicationRecord{
			MedicationName:  fmt.Sprintf("Drug %02d", i),
			PrescribedDose:  "500mg",
			Frequency:       "Twice daily",
			PrescribedCost:  "45",
			RecommendedDose: "500mg twice daily",
			Reasoning:       strings.Repeat("Within the recommended range. ", 6),
			CheaperAlternatives: []models.AlternativeRecord{
				{Name: "Generic", Cost: "12", Availability: "Widely available in India"},
			},
		}
	}
	return out
}

func TestRender_SinglePage(t *testing.T) {
	out := renderPlain(t, []models.MedicationRecord{{
		MedicationName: "Paracetamol",
		PrescribedDose: "500mg",
	}})

	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
	for _, want := range []string{
		"(Paracetamol)",
		"(Rs. N/A)",
		"(Analyzed 1 medication)",
		"(Generated on: March 01, 2024 at 02:05 PM)",
		"(Page 1 of 1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
	if strings.Contains(out, "(Analysis:)") {
		t.Error("empty reasoning should be omitted")
	}
	if strings.Contains(out, "(Cheaper Alternatives:)") {
		t.Error("empty alternatives should be omitted")
	}
}

func TestRender_UnnamedMedication(t *testing.T) {
	out := renderPlain(t, []models.MedicationRecord{{}})
	if !strings.Contains(out, "(Unnamed Medication)") {
		t.Error("missing name fallback")
	}
}

func TestRender_PaginatesInOrder(t *testing.T) {
	records := sampleRecords(12)
	out := renderPlain(t, records)

	last := -1
	for _, rec := range records {
		marker := "(" + rec.MedicationName + ")"
		if n := strings.Count(out, marker); n != 1 {
			t.Fatalf("%s appears %d times", marker, n)
		}
		idx := strings.Index(out, marker)
		if idx < last {
			t.Fatalf("%s rendered out of order", marker)
		}
		last = idx
	}

	matches := footerPattern.FindAllStringSubmatch(out, -1)
	if len(matches) < 2 {
		t.Fatalf("expected several pages, found %d footers", len(matches))
	}
	total, _ := strconv.Atoi(matches[0][2])
	if total != len(matches) {
		t.Fatalf("footer total %d, found %d footers", total, len(matches))
	}
	seen := make(map[string]bool)
	for _, m := range matches {
		if m[2] != matches[0][2] {
			t.Errorf("inconsistent page total %s", m[2])
		}
		seen[m[1]] = true
	}
	for i := 1; i <= total; i++ {
		if !seen[strconv.Itoa(i)] {
			t.Errorf("page %d has no footer", i)
		}
	}
}

func TestRender_Alternatives(t *testing.T) {
	out := renderPlain(t, sampleRecords(1))
	for _, want := range []string{
		"(Cheaper Alternatives:)",
		"(Rs. 12)",
		"(\\(Widely available in India\\))",
		"(Recommended:)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
}

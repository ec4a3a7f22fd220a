package analysis

import (
	"encoding/json"
	"reflect"
	"testing"

	"rxguardian/internal/extract"
	"rxguardian/pkg/models"
)

func defaultsRecord(name string) models.MedicationRecord {
	return models.MedicationRecord{
		MedicationName:      name,
		PrescribedDose:      DefaultNotSpecified,
		Frequency:           DefaultNotSpecified,
		Reasoning:           DefaultReasoning,
		PrescribedCost:      DefaultNotSpecified,
		RecommendedDose:     DefaultNotSpecified,
		CheaperAlternatives: []models.AlternativeRecord{},
	}
}

func TestNormalize_Shapes(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  []models.MedicationRecord
	}{
		{
			name:  "empty object",
			input: map[string]any{},
			want:  []models.MedicationRecord{defaultsRecord(DefaultMedicationName)},
		},
		{
			name:  "scalar string",
			input: "Aspirin",
			want:  []models.MedicationRecord{defaultsRecord("Aspirin")},
		},
		{
			name:  "scalar number",
			input: json.Number("42"),
			want:  []models.MedicationRecord{defaultsRecord("42")},
		},
		{
			name:  "null",
			input: nil,
			want:  []models.MedicationRecord{defaultsRecord("null")},
		},
		{
			name:  "empty list",
			input: []any{},
			want:  []models.MedicationRecord{},
		},
		{
			name:  "list with non-object items",
			input: []any{"Metformin", []any{json.Number("1"), "x"}},
			want: []models.MedicationRecord{
				defaultsRecord("Metformin"),
				defaultsRecord(`[1,"x"]`),
			},
		},
		{
			name:  "list with null item",
			input: []any{"Aspirin", nil, json.Number("7")},
			want: []models.MedicationRecord{
				defaultsRecord("Aspirin"),
				defaultsRecord("null"),
				defaultsRecord("7"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalize_PreservesPresentValues(t *testing.T) {
	in := map[string]any{
		"medication_name":  "Paracetamol",
		"prescribed_dose":  "",
		"frequency":        nil,
		"overdose":         "yes",
		"prescribed_cost":  json.Number("12.50"),
		"recommended_dose": "500mg every 6 hours",
		"cheaper_alternatives": []any{
			map[string]any{"name": "Crocin (GSK)", "cost": json.Number("15"), "availability": "Widely available in India"},
			"Calpol",
		},
		"manufacturer": "Micro Labs",
	}

	got := Normalize(in)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	rec := got[0]

	if rec.PrescribedDose != "" {
		t.Errorf("present empty dose replaced with %q", rec.PrescribedDose)
	}
	if rec.Frequency != DefaultNotSpecified {
		t.Errorf("null frequency = %q, want default", rec.Frequency)
	}
	if !rec.IsOverdose {
		t.Error(`overdose "yes" should be true`)
	}
	if rec.PrescribedCost != "12.50" {
		t.Errorf("cost = %q, want literal 12.50", rec.PrescribedCost)
	}
	if rec.Reasoning != DefaultReasoning {
		t.Errorf("reasoning = %q", rec.Reasoning)
	}

	wantAlts := []models.AlternativeRecord{
		{Name: "Crocin (GSK)", Cost: "15", Availability: "Widely available in India"},
		{Name: "Calpol"},
	}
	if !reflect.DeepEqual(rec.CheaperAlternatives, wantAlts) {
		t.Errorf("alternatives = %+v, want %+v", rec.CheaperAlternatives, wantAlts)
	}
	if rec.Extra["manufacturer"] != "Micro Labs" {
		t.Errorf("extra keys not carried: %+v", rec.Extra)
	}
}

func TestNormalize_AlternativesCoercion(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []models.AlternativeRecord
	}{
		{"absent", nil, []models.AlternativeRecord{}},
		{"scalar string", "No cheaper alternative available in India", []models.AlternativeRecord{{Name: "No cheaper alternative available in India"}}},
		{"blank string", "  ", []models.AlternativeRecord{}},
		{"single object", map[string]any{"name": "Glycomet"}, []models.AlternativeRecord{{Name: "Glycomet"}}},
		{"number", json.Number("7"), []models.AlternativeRecord{{Name: "7"}}},
		{"list with extra keys", []any{
			map[string]any{"name": "B", "cost": "5", "manufacturer": "Cipla", "savings": "40%"},
		}, []models.AlternativeRecord{
			{Name: "B", Cost: "5", Extra: map[string]any{"manufacturer": "Cipla", "savings": "40%"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(map[string]any{"cheaper_alternatives": tt.value})[0]
			if !reflect.DeepEqual(rec.CheaperAlternatives, tt.want) {
				t.Errorf("alternatives = %#v, want %#v", rec.CheaperAlternatives, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`[{"medication_name": "Paracetamol", "prescribed_cost": 12.50, "overdose": "1", "note": {"x": 1}}]`,
		`{"cheaper_alternatives": "Crocin"}`,
		`["Aspirin", null, 7]`,
		`{"cheaper_alternatives": [{"name": "B", "cost": "5", "manufacturer": "Cipla", "savings": "40%"}, 7]}`,
		`{}`,
	}

	// a bare array is only located inside a fence
	fenced := func(s string) string { return "```json\n" + s + "\n```" }

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			v, err := extract.Extract(fenced(raw))
			if err != nil {
				t.Fatalf("Extract(%q) error = %v", raw, err)
			}
			first := Normalize(v)

			b, err := json.Marshal(first)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			v2, err := extract.Extract(fenced(string(b)))
			if err != nil {
				t.Fatalf("Extract(%s) error = %v", b, err)
			}
			second := Normalize(v2)

			if !reflect.DeepEqual(first, second) {
				t.Errorf("not idempotent:\nfirst  %+v\nsecond %+v", first, second)
			}
		})
	}
}

func TestMedicationRecord_MarshalShape(t *testing.T) {
	b, err := json.Marshal(Normalize(map[string]any{})[0])
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range models.RecordKeys {
		v, ok := m[key]
		if !ok || v == nil {
			t.Errorf("key %q missing or null in %s", key, b)
		}
	}
	if _, ok := m["cheaper_alternatives"].([]any); !ok {
		t.Errorf("cheaper_alternatives is not an array in %s", b)
	}
}

func TestNormalize_AlternativeExtraKeysSurviveMarshal(t *testing.T) {
	rec := Normalize(map[string]any{
		"medication_name": "A",
		"cheaper_alternatives": []any{
			map[string]any{"name": "B", "cost": "5", "manufacturer": "Cipla", "savings": "40%"},
		},
	})[0]

	b, err := json.Marshal(rec.CheaperAlternatives)
	if err != nil {
		t.Fatal(err)
	}
	want := `[{"name":"B","cost":"5","manufacturer":"Cipla","savings":"40%"}]`
	if string(b) != want {
		t.Errorf("alternatives JSON = %s, want %s", b, want)
	}

	var back []models.AlternativeRecord
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, rec.CheaperAlternatives) {
		t.Errorf("round trip = %#v, want %#v", back, rec.CheaperAlternatives)
	}
}

package analysis

import (
	"errors"
	"testing"
)

func TestDecodeDocument(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr bool
	}{
		{
			name:    "bare array",
			data:    `[{"medication_name": "Aspirin", "overdose": false, "prescribed_cost": 12}]`,
			wantLen: 1,
		},
		{
			name:    "envelope",
			data:    `{"analysis": [{"medication_name": "Aspirin"}, {"medication_name": "Metformin", "cheaper_alternatives": [{"name": "Glycomet", "cost": "20"}]}]}`,
			wantLen: 2,
		},
		{
			name:    "empty list",
			data:    `[]`,
			wantErr: true,
		},
		{
			name:    "missing medication name",
			data:    `[{"prescribed_dose": "75mg"}]`,
			wantErr: true,
		},
		{
			name:    "overdose as text",
			data:    `[{"medication_name": "Aspirin", "overdose": "yes"}]`,
			wantErr: true,
		},
		{
			name:    "envelope without analysis",
			data:    `{"result": []}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `{oops`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDocument([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDocument) {
					t.Fatalf("DecodeDocument() error = %v, want ErrInvalidDocument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeDocument() error = %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDecodeDocument_CoercesCost(t *testing.T) {
	got, err := DecodeDocument([]byte(`[{"medication_name": "Aspirin", "prescribed_cost": 12.5}]`))
	if err != nil {
		t.Fatal(err)
	}
	if got[0].PrescribedCost != "12.5" {
		t.Errorf("cost = %q", got[0].PrescribedCost)
	}
}

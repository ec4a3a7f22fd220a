package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// JSON keys of a medication record, as the model is prompted to emit them.
const (
	KeyMedicationName      = "medication_name"
	KeyPrescribedDose      = "prescribed_dose"
	KeyFrequency           = "frequency"
	KeyOverdose            = "overdose"
	KeyReasoning           = "reasoning"
	KeyPrescribedCost      = "prescribed_cost"
	KeyRecommendedDose     = "recommended_dose"
	KeyCheaperAlternatives = "cheaper_alternatives"
)

// RecordKeys lists the schema keys in the order they are rendered.
var RecordKeys = []string{
	KeyMedicationName,
	KeyPrescribedDose,
	KeyFrequency,
	KeyOverdose,
	KeyReasoning,
	KeyPrescribedCost,
	KeyRecommendedDose,
	KeyCheaperAlternatives,
}

type MedicationRecord struct {
	// Identification
	MedicationName string // Drug or brand name as read from the prescription

	// Prescription as written
	PrescribedDose string // e.g. "500mg"
	Frequency      string // e.g. "twice daily"

	// Analysis
	IsOverdose      bool   // Prescribed dose exceeds the recommended dose
	Reasoning       string // Safety notes, contraindications, explanation of any failure
	PrescribedCost  string // Approximate market price of the prescribed brand
	RecommendedDose string // Dose per WHO / national guidelines

	CheaperAlternatives []AlternativeRecord

	// Keys outside the schema, carried through as the model produced them
	Extra map[string]any
}

// JSON keys of an alternative.
const (
	KeyAltName         = "name"
	KeyAltCost         = "cost"
	KeyAltReason       = "reason"
	KeyAltAvailability = "availability"
)

var alternativeKeys = []string{KeyAltName, KeyAltCost, KeyAltReason, KeyAltAvailability}

type AlternativeRecord struct {
	Name         string
	Cost         string
	Reason       string // optional
	Availability string // optional

	// Keys the model added, e.g. manufacturer or savings
	Extra map[string]any
}

type alternativeRecordJSON struct {
	Name         string `json:"name"`
	Cost         string `json:"cost"`
	Reason       string `json:"reason,omitempty"`
	Availability string `json:"availability,omitempty"`
}

type medicationRecordJSON struct {
	MedicationName      string              `json:"medication_name"`
	PrescribedDose      string              `json:"prescribed_dose"`
	Frequency           string              `json:"frequency"`
	IsOverdose          bool                `json:"overdose"`
	Reasoning           string              `json:"reasoning"`
	PrescribedCost      string              `json:"prescribed_cost"`
	RecommendedDose     string              `json:"recommended_dose"`
	CheaperAlternatives []AlternativeRecord `json:"cheaper_alternatives"`
}

// MarshalJSON writes the schema fields in schema order followed by any extra keys.
// A nil alternatives slice is written as an empty array.
func (r MedicationRecord) MarshalJSON() ([]byte, error) {
	alts := r.CheaperAlternatives
	if alts == nil {
		alts = []AlternativeRecord{}
	}
	base, err := json.Marshal(medicationRecordJSON{
		MedicationName:      r.MedicationName,
		PrescribedDose:      r.PrescribedDose,
		Frequency:           r.Frequency,
		IsOverdose:          r.IsOverdose,
		Reasoning:           r.Reasoning,
		PrescribedCost:      r.PrescribedCost,
		RecommendedDose:     r.RecommendedDose,
		CheaperAlternatives: alts,
	})
	if err != nil {
		return nil, err
	}
	return appendExtra(base, r.Extra, RecordKeys)
}

// MarshalJSON writes name, cost and the optional fields followed by any extra keys.
func (a AlternativeRecord) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(alternativeRecordJSON{
		Name:         a.Name,
		Cost:         a.Cost,
		Reason:       a.Reason,
		Availability: a.Availability,
	})
	if err != nil {
		return nil, err
	}
	return appendExtra(base, a.Extra, alternativeKeys)
}

// UnmarshalJSON decodes an alternative leniently. A non-object value becomes
// an alternative named after its string form.
func (a *AlternativeRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("alternative: %w", err)
	}
	*a = alternativeFromValue(v)
	return nil
}

// appendExtra inserts the sorted extra keys not in known before the closing
// brace of the JSON object base.
func appendExtra(base []byte, extra map[string]any, known []string) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if slices.Contains(known, k) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return base, nil
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(base[:len(base)-1])
	for _, k := range keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(extra[k])
		if err != nil {
			return nil, fmt.Errorf("marshal extra key %q: %w", k, err)
		}
		buf.WriteByte(',')
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a record leniently: values of the wrong type are coerced
// and absent keys are left at their zero values. No defaults are applied.
func (r *MedicationRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return fmt.Errorf("medication record: %w", err)
	}
	if m == nil {
		return fmt.Errorf("medication record: expected an object")
	}
	*r = RecordFromMap(m)
	return nil
}

// RecordFromMap builds a record from a decoded JSON object without filling defaults.
func RecordFromMap(m map[string]any) MedicationRecord {
	rec := MedicationRecord{
		MedicationName:      StringValue(m[KeyMedicationName]),
		PrescribedDose:      StringValue(m[KeyPrescribedDose]),
		Frequency:           StringValue(m[KeyFrequency]),
		IsOverdose:          BoolValue(m[KeyOverdose]),
		Reasoning:           StringValue(m[KeyReasoning]),
		PrescribedCost:      StringValue(m[KeyPrescribedCost]),
		RecommendedDose:     StringValue(m[KeyRecommendedDose]),
		CheaperAlternatives: AlternativesValue(m[KeyCheaperAlternatives]),
	}
	rec.Extra = extraKeys(m, RecordKeys)
	return rec
}

// extraKeys returns the entries of m whose keys are not in known, or nil.
func extraKeys(m map[string]any, known []string) map[string]any {
	var extra map[string]any
	for k, v := range m {
		if slices.Contains(known, k) {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}
	return extra
}

// StringValue renders a decoded JSON value as text. Numbers keep their literal
// form; arrays and objects are rendered as compact JSON.
func StringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// BoolValue interprets a decoded JSON value as a flag.
func BoolValue(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true
		}
		return false
	case json.Number:
		f, err := t.Float64()
		return err == nil && f != 0
	case float64:
		return t != 0
	default:
		return false
	}
}

// AlternativesValue coerces a decoded JSON value into a list of alternatives.
// Lists are kept item for item, an object or a non-blank scalar becomes a
// one-element list. It never returns nil.
func AlternativesValue(v any) []AlternativeRecord {
	out := []AlternativeRecord{}
	switch t := v.(type) {
	case nil:
		return out
	case []any:
		for _, item := range t {
			out = append(out, alternativeFromValue(item))
		}
	case map[string]any:
		out = append(out, alternativeFromValue(t))
	case string:
		if strings.TrimSpace(t) != "" {
			out = append(out, AlternativeRecord{Name: t})
		}
	default:
		out = append(out, alternativeFromValue(t))
	}
	return out
}

func alternativeFromValue(v any) AlternativeRecord {
	m, ok := v.(map[string]any)
	if !ok {
		return AlternativeRecord{Name: StringValue(v)}
	}
	return AlternativeRecord{
		Name:         StringValue(m[KeyAltName]),
		Cost:         StringValue(m[KeyAltCost]),
		Reason:       StringValue(m[KeyAltReason]),
		Availability: StringValue(m[KeyAltAvailability]),
		Extra:        extraKeys(m, alternativeKeys),
	}
}

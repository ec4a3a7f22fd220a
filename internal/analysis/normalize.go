package analysis

import (
	"rxguardian/pkg/models"
)

// Defaults filled in for keys the model left out or set to null.
const (
	DefaultMedicationName = "Unknown"
	DefaultNotSpecified   = "Not specified"
	DefaultReasoning      = "No reasoning provided"
)

// nullName names the record made from a null list element.
const nullName = "null"

// Normalize turns a decoded model answer into records with every schema
// field present. A single value is treated as a one-element list; list items
// that are not objects become a record named after their string form, with
// null rendered as "null". Present values are kept and coerced to the field type.
func Normalize(parsed any) []models.MedicationRecord {
	items, ok := parsed.([]any)
	if !ok {
		items = []any{parsed}
	}

	out := make([]models.MedicationRecord, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, normalizeObject(v))
		case nil:
			out = append(out, normalizeObject(map[string]any{
				models.KeyMedicationName: nullName,
			}))
		default:
			out = append(out, normalizeObject(map[string]any{
				models.KeyMedicationName: models.StringValue(v),
			}))
		}
	}
	return out
}

func normalizeObject(m map[string]any) models.MedicationRecord {
	rec := models.RecordFromMap(m)

	if absent(m, models.KeyMedicationName) {
		rec.MedicationName = DefaultMedicationName
	}
	if absent(m, models.KeyPrescribedDose) {
		rec.PrescribedDose = DefaultNotSpecified
	}
	if absent(m, models.KeyFrequency) {
		rec.Frequency = DefaultNotSpecified
	}
	if absent(m, models.KeyReasoning) {
		rec.Reasoning = DefaultReasoning
	}
	if absent(m, models.KeyPrescribedCost) {
		rec.PrescribedCost = DefaultNotSpecified
	}
	if absent(m, models.KeyRecommendedDose) {
		rec.RecommendedDose = DefaultNotSpecified
	}
	// overdose defaults to false and cheaper_alternatives to an empty list,
	// which RecordFromMap already yields for absent keys.
	return rec
}

func absent(m map[string]any, key string) bool {
	v, ok := m[key]
	return !ok || v == nil
}

// failureRecord is the single record returned in place of an analysis.
func failureRecord(name, reasoning string) []models.MedicationRecord {
	return Normalize(map[string]any{
		models.KeyMedicationName: name,
		models.KeyReasoning:      reasoning,
	})
}

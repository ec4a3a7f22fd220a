package analysis

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"rxguardian/pkg/models"
)

//go:embed schema/analysis.schema.json
var analysisSchemaJSON []byte

// ErrInvalidDocument is returned when an analysis document fails schema validation.
var ErrInvalidDocument = errors.New("invalid analysis document")

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(analysisSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile analysis schema: %w", err)
	}
	return schema, nil
})

// Document is the body returned by the analyze endpoint.
type Document struct {
	Analysis   []models.MedicationRecord `json:"analysis"`
	SourceText string                    `json:"source_text,omitempty"`
}

// ValidateRecords checks a JSON array of medication records against the schema.
func ValidateRecords(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}

	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors))
	for path, e := range result.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %v", path, e))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// DecodeDocument reads either a bare record array or an {"analysis": [...]}
// envelope, validates it and decodes the records.
func DecodeDocument(data []byte) ([]models.MedicationRecord, error) {
	const op = "DecodeDocument"

	records := bytes.TrimSpace(data)
	if len(records) > 0 && records[0] == '{' {
		var env struct {
			Analysis json.RawMessage `json:"analysis"`
		}
		if err := json.Unmarshal(records, &env); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidDocument, err)
		}
		if len(env.Analysis) == 0 {
			return nil, fmt.Errorf("%s: %w: missing \"analysis\"", op, ErrInvalidDocument)
		}
		records = env.Analysis
	}

	if err := ValidateRecords(records); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var out []models.MedicationRecord
	if err := json.Unmarshal(records, &out); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidDocument, err)
	}
	return out, nil
}

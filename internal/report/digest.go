package report

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"rxguardian/pkg/models"
)

// Digest fingerprints an analysis: the SHA-256 of its RFC 8785 canonical JSON.
// Two analyses with the same content get the same digest regardless of key order.
func Digest(records []models.MedicationRecord) (string, error) {
	const op = "Digest"

	raw, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("%s: marshal: %w", op, err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("%s: canonicalize: %w", op, err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

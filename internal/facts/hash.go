package facts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"journey-insights/internal/model"
)

// ComputeFactsHash digests a canonical JSON form of the cohort facts. The
// record is round-tripped through a generic map so every object's keys are
// emitted sorted, and the hash and generation timestamp fields are excluded
// so recomputing identical facts always reproduces the same digest.
func ComputeFactsHash(c *model.CohortFacts) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling cohort facts: %w", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("canonicalizing cohort facts: %w", err)
	}
	delete(generic, "factsHash")
	delete(generic, "generatedAt")

	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("marshaling canonical form: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

package scanner

import (
	"encoding/json"
	"fmt"
	"os"

	"filmarchive/internal/models"
)

// WriteArtifact saves candidate records as a JSON array so a scan can be
// inspected or replayed by the sync stage without re-walking the filesystem.
func WriteArtifact(path string, candidates []models.ImageRecord) error {
	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	return nil
}

// ReadArtifact loads candidate records previously written by WriteArtifact.
func ReadArtifact(path string) ([]models.ImageRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var candidates []models.ImageRecord
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return candidates, nil
}

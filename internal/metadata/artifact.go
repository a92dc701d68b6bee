package metadata

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteArtifact persists the per-title metadata artifact as indented JSON.
func WriteArtifact(path string, artifact Artifact) error {
	payload, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata artifact: encode: %w", err)
	}
	payload = append(payload, '\n')
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("metadata artifact: write: %w", err)
	}
	return nil
}

// ReadArtifact loads a previously written metadata artifact.
func ReadArtifact(path string) (Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("metadata artifact: read: %w", err)
	}
	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return Artifact{}, fmt.Errorf("metadata artifact: decode: %w", err)
	}
	return artifact, nil
}

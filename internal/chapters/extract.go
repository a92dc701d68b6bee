package chapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"remuxkit/internal/command"
)

// Extractor pulls chapter XML out of an existing Matroska file through
// mkvextract.
type Extractor struct {
	binary string
	runner *command.Runner
}

// NewExtractor constructs an Extractor for the given mkvextract binary.
func NewExtractor(binary string, runner *command.Runner) (*Extractor, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("mkvextract binary required")
	}
	if runner == nil {
		return nil, errors.New("command runner required")
	}
	return &Extractor{binary: binary, runner: runner}, nil
}

// Extract writes the chapter XML of source to destination and returns the
// parsed list. A source without chapters yields an empty list.
func (e *Extractor) Extract(ctx context.Context, source, destination string) ([]Chapter, error) {
	if err := e.runner.Run(ctx, e.binary, []string{source, "chapters", destination}, nil); err != nil {
		return nil, fmt.Errorf("chapters extract: %w", err)
	}
	payload, err := os.ReadFile(destination)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chapters extract: %w", err)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, nil
	}
	return ParseXML(payload)
}

// WriteFile renders a chapter list and writes it to path.
func WriteFile(path string, list []Chapter) error {
	payload, err := RenderXML(list)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("chapters write: %w", err)
	}
	return nil
}

package ingest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixtures is the on-disk format of a seed file
type Fixtures struct {
	Authors []Record `yaml:"authors"`
}

// LoadFixtures reads author records from a YAML seed file
func LoadFixtures(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a YAML seed document
func ParseFixtures(data []byte) ([]Record, error) {
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	for i, rec := range fixtures.Authors {
		if rec.Author.GoodreadsID == "" {
			return nil, fmt.Errorf("fixture %d: goodreads_id is required", i)
		}
	}
	return fixtures.Authors, nil
}

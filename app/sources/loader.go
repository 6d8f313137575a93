// Package sources loads the YAML seed file describing the feeds to poll.
// The file is synced into the database at startup; source management
// afterwards happens through the API.
package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"veille/app/database"
)

type Definition struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Kind    string `yaml:"kind"`
	Icon    string `yaml:"icon"`
	Enabled *bool  `yaml:"enabled"` // nil defaults to true
}

type seedFile struct {
	Sources []Definition `yaml:"sources"`
}

// Load reads and validates the seed file. A missing file is not an
// error: it simply yields no definitions.
func Load(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	for i, def := range seed.Sources {
		if err := validate(def); err != nil {
			return nil, fmt.Errorf("invalid source at index %d: %w", i, err)
		}
	}

	return seed.Sources, nil
}

func validate(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("name is required")
	}
	if def.URL == "" {
		return fmt.Errorf("url is required")
	}
	if def.Kind != database.SourceKindArticle && def.Kind != database.SourceKindVideo {
		return fmt.Errorf("kind must be %q or %q, got %q",
			database.SourceKindArticle, database.SourceKindVideo, def.Kind)
	}
	return nil
}

// IsEnabled resolves the optional enabled flag, defaulting to true.
func (d Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

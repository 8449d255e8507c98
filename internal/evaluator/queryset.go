// Package evaluator runs a labeled query set through the pipeline and scores
// retrieval and answer quality offline.
package evaluator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andina-labs/yachay/internal/models"
)

// QueryItem is one labeled evaluation query.
type QueryItem struct {
	Query           string            `yaml:"query"`
	ExpectedAnswer  string            `yaml:"expected_answer,omitempty"`
	ExpectedSources []string          `yaml:"expected_sources"`
	Category        string            `yaml:"category,omitempty"`
	Filters         map[string]string `yaml:"filters,omitempty"`
}

// QuerySet is a labeled evaluation set loaded from YAML.
type QuerySet struct {
	Name  string      `yaml:"name,omitempty"`
	Items []QueryItem `yaml:"items"`
}

// LoadQuerySet reads and validates a query set file.
func LoadQuerySet(path string) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query set: %w", err)
	}
	var qs QuerySet
	if err := yaml.Unmarshal(data, &qs); err != nil {
		return nil, fmt.Errorf("failed to parse query set: %w", err)
	}
	if len(qs.Items) == 0 {
		return nil, models.NewConfigurationError("items", "query set is empty")
	}
	for i, item := range qs.Items {
		if item.Query == "" {
			return nil, models.NewConfigurationError("items", "item %d has no query", i)
		}
	}
	return &qs, nil
}

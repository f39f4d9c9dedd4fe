// Package catalog reads a YAML seed catalog of entries and versions used to
// bootstrap development and test deployments.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Loader handles loading and parsing of a catalog file
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the catalog file
func (l *Loader) Load() (Catalog, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Catalog{}, fmt.Errorf("failed to read catalog file: %w", err)
	}

	data = expandTemplateVariables(data)

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("failed to parse catalog yaml: %w", err)
	}

	return cat, nil
}

// expandTemplateVariables substitutes {{NAME}} with the environment value of
// NAME, or an empty string when unset.
// Example: {{DOCKSTORE_ORG}} -> dockstore
func expandTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := strings.TrimSpace(string(templateVar.FindSubmatch(m)[1]))
		return []byte(os.Getenv(name))
	})
}

package data_analysis

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

// FieldInfo describes a canonical EdgeTX telemetry field
type FieldInfo struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Unit        string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

//go:embed fields.yaml
var fieldCatalogYAML []byte

var fieldCatalog = sync.OnceValue(func() map[string]FieldInfo {
	catalog := make(map[string]FieldInfo)
	if err := yaml.Unmarshal(fieldCatalogYAML, &catalog); err != nil {
		panic(fmt.Sprintf("invalid field catalog: %v", err))
	}
	return catalog
})

// LookupField returns the catalog entry for a canonical field name
func LookupField(field string) (FieldInfo, bool) {
	info, ok := fieldCatalog()[field]
	return info, ok
}

// FieldTitle returns the human title of a field, or the field name itself
func FieldTitle(field string) string {
	if info, ok := LookupField(field); ok {
		return info.Title
	}
	return field
}

// FieldLabel returns the title with the unit in parentheses when the field has one
func FieldLabel(field string) string {
	info, ok := LookupField(field)
	if !ok {
		return field
	}
	if info.Unit == "" {
		return info.Title
	}
	return fmt.Sprintf("%s (%s)", info.Title, info.Unit)
}

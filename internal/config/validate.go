package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Draft-07 schema for the settings file. Unknown keys are rejected so a
// typo in config.json fails loudly instead of silently using a default.
//
//go:embed schema.json
var schemaJSON string

// ValidateSettings checks the raw settings map against the embedded schema
// before any unmarshalling happens. One error carries every violation.
func ValidateSettings(settings map[string]any) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewGoLoader(settings),
	)
	if err != nil {
		return fmt.Errorf("validate config schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var b strings.Builder
	for i, schemaErr := range result.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(schemaErr.String())
	}
	return fmt.Errorf("invalid configuration: %s", b.String())
}

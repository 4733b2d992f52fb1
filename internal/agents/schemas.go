package agents

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Reasoning-service output is untrusted; every structured response is
// validated against a schema before it is unmarshaled.

const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "project_name": { "type": "string", "minLength": 1 },
    "architecture_notes": { "type": "string" },
    "tasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "id": { "type": "integer", "minimum": 1 },
          "title": { "type": "string", "minLength": 1 },
          "description": { "type": "string" },
          "target_path": { "type": "string" },
          "dependencies": { "type": "array", "items": { "type": "integer" } },
          "critical": { "type": "boolean" }
        },
        "required": ["id", "title"]
      }
    }
  },
  "required": ["project_name", "tasks"]
}`

const remediationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": { "type": "integer", "minimum": 1 },
          "title": { "type": "string", "minLength": 1 },
          "description": { "type": "string" },
          "target_path": { "type": "string" },
          "dependencies": { "type": "array", "items": { "type": "integer" } },
          "critical": { "type": "boolean" }
        },
        "required": ["id", "title"]
      }
    }
  },
  "required": ["tasks"]
}`

const evaluationSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "score": { "type": "integer", "minimum": 0, "maximum": 100 },
    "verdict": { "type": "string", "enum": ["pass", "refine", "fail"] },
    "findings": { "type": "array", "items": { "type": "string" } }
  },
  "required": ["score", "findings"]
}`

func validateAgainst(schema string, document []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if result.Valid() {
		return nil
	}
	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	return fmt.Errorf("response failed schema validation: %s", strings.Join(errs, "; "))
}

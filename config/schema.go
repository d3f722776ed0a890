package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// RequestSchema describes the json accepted by Read.
func RequestSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&PlanRequest{})
}

// ResponseSchema describes the json written by WriteResponse.
func ResponseSchema() *jsonschema.Schema {
	return jsonschema.Reflect(&PlanResponse{})
}

// MarshalSchema renders s as indented json.
func MarshalSchema(s *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var stringArray = map[string]any{"type": "array", "items": map[string]any{"type": "string"}}

var cvSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type":    "object",
	"required": []string{
		"fullName", "jobTitle", "personalDetails", "profile",
		"experience", "education", "skills", "interests",
	},
	"properties": map[string]any{
		"fullName": map[string]any{"type": "string", "minLength": 1},
		"jobTitle": map[string]any{"type": "string"},
		"personalDetails": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"nationality":   map[string]any{"type": "string"},
				"languages":     stringArray,
				"dob":           map[string]any{"type": "string"},
				"maritalStatus": map[string]any{"type": "string"},
				"email":         map[string]any{"type": "string"},
				"phone":         map[string]any{"type": "string"},
				"location":      map[string]any{"type": "string"},
			},
		},
		"profile": map[string]any{"type": "string"},
		"experience": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"role":      map[string]any{"type": "string"},
					"company":   map[string]any{"type": "string"},
					"location":  map[string]any{"type": "string"},
					"startDate": map[string]any{"type": "string"},
					"endDate":   map[string]any{"type": "string"},
					"bullets":   stringArray,
				},
			},
		},
		"education": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"program":     map[string]any{"type": "string"},
					"institution": map[string]any{"type": "string"},
					"startYear":   map[string]any{"type": []string{"string", "integer"}},
					"endYear":     map[string]any{"type": []string{"string", "integer"}},
				},
			},
		},
		"skills":    stringArray,
		"interests": stringArray,
	},
}

// Registration answers are often yes/no booleans or numbers in model output,
// so only the identity keys are required and typed.
var registrationSchema = map[string]any{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []string{"fullName", "email", "phone"},
	"properties": map[string]any{
		"fullName": map[string]any{"type": "string"},
		"email":    map[string]any{"type": "string"},
		"phone":    map[string]any{"type": "string"},
		"emergencyContactDetails": map[string]any{
			"type": []string{"object", "null"},
		},
	},
}

// SchemaValidator validates model output against the compiled CV and
// registration schemas.
type SchemaValidator struct {
	cv           *jsonschema.Schema
	registration *jsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	cv, err := compileSchema("cv.json", cvSchema)
	if err != nil {
		return nil, err
	}
	reg, err := compileSchema("registration.json", registrationSchema)
	if err != nil {
		return nil, err
	}
	return &SchemaValidator{cv: cv, registration: reg}, nil
}

// MustSchemaValidator panics when the built-in schemas do not compile.
func MustSchemaValidator() *SchemaValidator {
	v, err := NewSchemaValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func (v *SchemaValidator) ValidateCV(data []byte) error {
	return validateAgainst(v.cv, data)
}

func (v *SchemaValidator) ValidateRegistration(data []byte) error {
	return validateAgainst(v.registration, data)
}

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

func validateAgainst(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// extractJSON strips markdown fences and any prose around the outermost JSON object.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}

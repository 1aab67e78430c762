package validation

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// MessageRequestSchema describes the inbound assistant message used by
// both the HTTP API and the job worker variables.
const MessageRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["userId", "message"],
  "properties": {
    "userId":   {"type": "string", "minLength": 1, "maxLength": 128},
    "message":  {"type": "string", "maxLength": 4000},
    "context":  {"type": ["object", "null"]},
    "metadata": {"type": ["object", "null"]}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks JSON documents against a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles a JSON schema.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// NewMessageRequestValidator compiles MessageRequestSchema.
func NewMessageRequestValidator() *Validator {
	v, err := NewValidator(MessageRequestSchema)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateJSON validates a raw JSON document.
func (v *Validator) ValidateJSON(raw []byte) (*ValidationResult, error) {
	if !json.Valid(raw) {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: "body is not valid JSON",
				Code:    "INVALID_JSON",
			}},
		}, nil
	}
	return v.validate(gojsonschema.NewBytesLoader(raw))
}

// ValidateInput validates an already decoded document.
func (v *Validator) ValidateInput(input map[string]interface{}) (*ValidationResult, error) {
	return v.validate(gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := v.schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	sort.Slice(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out, nil
}

// Summary flattens the errors into a single line for logs and error details.
func (r *ValidationResult) Summary() string {
	if r == nil || r.Valid {
		return ""
	}
	s := ""
	for i, e := range r.Errors {
		if i > 0 {
			s += "; "
		}
		s += e.Field + ": " + e.Message
	}
	return s
}

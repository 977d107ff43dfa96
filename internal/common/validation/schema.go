// Package validation turns loosely formatted LLM output into validated JSON
// documents and holds the small input checks used at the API boundary.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrMalformedJSON = errors.New("MALFORMED_JSON")

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SchemaError is returned when a document parses but does not match its schema.
type SchemaError struct {
	Schema string
	Result *ValidationResult
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document does not match schema %s: %s", e.Schema, strings.Join(e.Result.GetErrorMessages(), "; "))
}

// Schema is a compiled JSON schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

func CompileSchema(name, src string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// MustCompileSchema panics on an invalid schema; use for package-level schemas.
func MustCompileSchema(name, src string) *Schema {
	s, err := CompileSchema(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Validate checks an already-decoded document.
func (s *Schema) Validate(doc interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "SCHEMA_ERROR"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return out
}

// ExtractJSON returns the body of the first ```json fence, else the first ```
// fence, else the trimmed text.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```json"); idx >= 0 {
		return fenceBody(text[idx+len("```json"):])
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		return fenceBody(text[idx+3:])
	}
	return text
}

func fenceBody(rest string) string {
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ParseDocument extracts and decodes the JSON in an LLM completion.
func ParseDocument(text string) (interface{}, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return doc, nil
}

// DecodeValidated checks doc against schema and decodes it into out.
func DecodeValidated(doc interface{}, schema *Schema, out interface{}) error {
	if result := schema.Validate(doc); !result.Valid {
		return &SchemaError{Schema: schema.Name(), Result: result}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}

// ParseInto runs ParseDocument then DecodeValidated.
func ParseInto(text string, schema *Schema, out interface{}) error {
	doc, err := ParseDocument(text)
	if err != nil {
		return err
	}
	return DecodeValidated(doc, schema, out)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var (
	taskTypePattern = regexp.MustCompile(`^[a-z]+\.[a-z]+(-[a-z]+)*$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidateTaskType checks the category.action-name convention for job task types.
func ValidateTaskType(taskType string) error {
	if !taskTypePattern.MatchString(taskType) {
		return fmt.Errorf("task type must follow format: category.action-name (e.g., assistant.create-plan)")
	}
	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

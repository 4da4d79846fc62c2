package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MappingSchema is the JSON-Schema for one mapping request, compiled once.
// The same document is sent to the model as the output constraint and used
// locally to check its answer.
type MappingSchema struct {
	text     []byte
	compiled *jsonschema.Schema
}

// CompileMappingSchema builds the schema for columns and stages. Every field
// value must be one of the offered column names; optional fields may be null.
func CompileMappingSchema(columns, stages []string) (*MappingSchema, error) {
	text, err := json.MarshalIndent(mappingSchemaDoc(columns, stages), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal mapping schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("mapping.json", bytes.NewReader(text)); err != nil {
		return nil, fmt.Errorf("add mapping schema: %w", err)
	}
	compiled, err := compiler.Compile("mapping.json")
	if err != nil {
		return nil, fmt.Errorf("compile mapping schema: %w", err)
	}
	return &MappingSchema{text: text, compiled: compiled}, nil
}

// String returns the indented schema document for the prompt.
func (s *MappingSchema) String() string { return string(s.text) }

// Check reports whether data is a mapping answer the schema accepts.
func (s *MappingSchema) Check(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("mapping is not json: %w", err)
	}
	if err := s.compiled.Validate(v); err != nil {
		return fmt.Errorf("mapping does not match schema: %w", err)
	}
	return nil
}

func mappingSchemaDoc(columns, stages []string) map[string]any {
	col := columnProp(columns, true)
	requiredCol := columnProp(columns, false)

	stageProps := make(map[string]any, len(stages))
	for _, st := range stages {
		stageProps[st] = col
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"order_number": requiredCol,
			"quantity":     requiredCol,
			"style":        col,
			"fabric":       col,
			"color":        col,
			"timeline": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           stageProps,
			},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"order_number", "quantity"},
	}
}

func columnProp(columns []string, nullable bool) map[string]any {
	enum := make([]any, 0, len(columns)+1)
	for _, c := range columns {
		enum = append(enum, c)
	}
	if nullable {
		enum = append(enum, nil)
	}
	return map[string]any{"enum": enum}
}

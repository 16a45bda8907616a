package config

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/c360/flowpipe/errors"
)

//go:embed schema/pipeline.schema.json
var pipelineSchema []byte

// PipelineSchema returns the JSON schema of a pipeline section.
func PipelineSchema() []byte {
	return pipelineSchema
}

// ValidatePipeline checks a pipeline section against the embedded schema. Element
// specific fields are not checked here; element constructors own them.
func ValidatePipeline(tree Tree) error {
	schemaLoader := gojsonschema.NewBytesLoader(pipelineSchema)
	documentLoader := gojsonschema.NewGoLoader(map[string]any(tree))

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "config", "ValidatePipeline", "run validation")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(msgs, "; ")),
		"config", "ValidatePipeline", "validate schema")
}

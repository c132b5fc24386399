// Package schema validates model-card metadata against the bundled v0 and v1
// JSON Schemas. The custom formats okfn-license, iso-639-3 and iso-15924
// check membership in the controlled vocabularies.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mittagessen/HTRMoPo/pkg/vocab"
)

//go:embed v0.metadata.schema.json
var v0Schema []byte

//go:embed v1.metadata.schema.json
var v1Schema []byte

const (
	v0SchemaURL = "https://htrmopo.models.dh-center.org/v0.metadata.schema.json"
	v1SchemaURL = "https://htrmopo.models.dh-center.org/v1.metadata.schema.json"
)

// Validator validates decoded model-card documents. Construct with
// NewValidator; the zero value is not usable.
type Validator struct {
	v0 *jsonschema.Schema
	v1 *jsonschema.Schema
}

// NewValidator compiles the bundled schemas with format checks backed by the
// given vocabulary tables.
func NewValidator(tables *vocab.Tables) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	// Non-string instances pass the format checks unchanged; type errors
	// are the type keyword's business.
	c.Formats["okfn-license"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		return tables.HasLicense(s)
	}
	c.Formats["iso-639-3"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		return tables.HasLanguage(s)
	}
	c.Formats["iso-15924"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		return tables.HasScript(s)
	}

	if err := c.AddResource(v0SchemaURL, bytes.NewReader(v0Schema)); err != nil {
		return nil, fmt.Errorf("loading v0 schema: %w", err)
	}
	if err := c.AddResource(v1SchemaURL, bytes.NewReader(v1Schema)); err != nil {
		return nil, fmt.Errorf("loading v1 schema: %w", err)
	}

	v0, err := c.Compile(v0SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling v0 schema: %w", err)
	}
	v1, err := c.Compile(v1SchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling v1 schema: %w", err)
	}

	return &Validator{v0: v0, v1: v1}, nil
}

// ValidateV0 validates a decoded v0 metadata document.
func (v *Validator) ValidateV0(doc interface{}) error {
	if err := v.v0.Validate(doc); err != nil {
		return &ValidationError{Version: "v0", Err: err}
	}
	return nil
}

// ValidateV1 validates a decoded v1 model-card header.
func (v *Validator) ValidateV1(doc interface{}) error {
	if err := v.v1.Validate(doc); err != nil {
		return &ValidationError{Version: "v1", Err: err}
	}
	return nil
}

// ValidationError wraps a schema violation with the schema generation it was
// checked against.
type ValidationError struct {
	Version string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s metadata schema violation: %v", e.Version, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

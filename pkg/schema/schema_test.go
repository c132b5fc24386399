package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mittagessen/HTRMoPo/pkg/vocab"
)

func newTestValidator(t *testing.T) *Validator {
	tables, err := vocab.Load()
	require.NoError(t, err)
	v, err := NewValidator(tables)
	require.NoError(t, err)
	return v
}

func decode(t *testing.T, raw string) interface{} {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

const validV0 = `{
  "name": "urdu_best",
  "summary": "Printed Urdu Base Model",
  "description": "A model.",
  "license": "cc-by-4.0",
  "script": ["Arab"],
  "graphemes": ["a"],
  "accuracy": 96.5,
  "authors": [{"name": "Kiessling, Benjamin"}]
}`

const validV1 = `{
  "id": null,
  "summary": "Printed Urdu Base Model",
  "authors": [{"name": "Kiessling, Benjamin"}],
  "license": "cc-by-4.0",
  "software_name": "kraken",
  "script": ["Arab"],
  "language": ["urd"],
  "model_type": ["recognition"]
}`

func TestValidateV0(t *testing.T) {
	v := newTestValidator(t)
	assert.NoError(t, v.ValidateV0(decode(t, validV0)))
}

func TestValidateV0Errors(t *testing.T) {
	v := newTestValidator(t)
	tests := []struct {
		name string
		doc  string
	}{
		{"missing required fields", `{"name": "m"}`},
		{"unknown license", `{
  "name": "m", "summary": "s", "description": "d",
  "license": "not-a-license", "script": ["Arab"], "graphemes": [],
  "accuracy": 90, "authors": []
}`},
		{"unknown script", `{
  "name": "m", "summary": "s", "description": "d",
  "license": "cc-by-4.0", "script": ["Qqqq"], "graphemes": [],
  "accuracy": 90, "authors": []
}`},
		{"accuracy out of range", `{
  "name": "m", "summary": "s", "description": "d",
  "license": "cc-by-4.0", "script": ["Arab"], "graphemes": [],
  "accuracy": 101, "authors": []
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateV0(decode(t, tt.doc))
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestValidateV1(t *testing.T) {
	v := newTestValidator(t)
	assert.NoError(t, v.ValidateV1(decode(t, validV1)))
}

func TestValidateV1Errors(t *testing.T) {
	v := newTestValidator(t)
	tests := []struct {
		name string
		doc  string
	}{
		{"missing required fields", `{"summary": "s"}`},
		{"unknown language", `{
  "id": null, "summary": "s", "authors": [], "license": "cc-by-4.0",
  "software_name": "kraken", "script": ["Arab"], "language": ["xx-not-a-code"],
  "model_type": ["recognition"]
}`},
		{"invalid model type", `{
  "id": null, "summary": "s", "authors": [], "license": "cc-by-4.0",
  "software_name": "kraken", "script": ["Arab"], "language": ["urd"],
  "model_type": ["translation"]
}`},
		{"other license without name", `{
  "id": null, "summary": "s", "authors": [], "license": "other-nc",
  "software_name": "kraken", "script": ["Arab"], "language": ["urd"],
  "model_type": ["recognition"]
}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, v.ValidateV1(decode(t, tt.doc)))
		})
	}
}

func TestValidateV1OtherLicenseWithName(t *testing.T) {
	v := newTestValidator(t)
	doc := decode(t, `{
  "id": "10.5281/zenodo.123", "summary": "s", "authors": [],
  "license": "other-nc", "license_name": "Custom License",
  "software_name": "kraken", "script": ["Arab"], "language": ["urd"],
  "model_type": ["recognition"]
}`)
	assert.NoError(t, v.ValidateV1(doc))
}

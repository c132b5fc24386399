package record

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mittagessen/HTRMoPo/pkg/doi"
)

// Validator checks decoded model-card documents against the repository
// schemas. Satisfied by schema.Validator.
type Validator interface {
	ValidateV0(doc interface{}) error
	ValidateV1(doc interface{}) error
}

// v0Card is the typed shape of a metadata.json document.
type v0Card struct {
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	License     string   `json:"license"`
	Script      []string `json:"script"`
	Graphemes   []string `json:"graphemes"`
	Accuracy    float64  `json:"accuracy"`
	Authors     []Author `json:"authors"`
	Keywords    []string `json:"keywords"`
	ModelType   []string `json:"model_type"`
}

// BuildV0 normalizes a legacy JSON model card into a V0Record. The base
// record is copied, never mutated.
func BuildV0(base *DCATRecord, raw []byte, v Validator) (*V0Record, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("metadata for %s not in JSON format: %w", base.DOI, err)
	}
	if err := v.ValidateV0(generic); err != nil {
		return nil, err
	}
	var card v0Card
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("metadata for %s not in JSON format: %w", base.DOI, err)
	}

	b := base.Copy()

	rec := &V0Record{
		DOI:             doi.Bare(b.DOI),
		ConceptDOI:      doi.Bare(b.ConceptDOI),
		Creators:        append(b.Creators, card.Authors...),
		Summary:         card.Summary,
		Description:     card.Description,
		Metrics:         V0Metrics{CER: 100 - card.Accuracy},
		License:         card.License,
		Script:          card.Script,
		Distribution:    b.Distribution,
		Graphemes:       card.Graphemes,
		PublicationDate: b.Datestamp,
		ModelType:       card.ModelType,
		Keywords:        b.Keywords,
	}
	if card.Keywords != nil {
		rec.Keywords = card.Keywords
	}
	if len(rec.ModelType) == 0 {
		rec.ModelType = []string{"recognition"}
	}
	return rec, nil
}

// v1Card is the typed shape of a README.md front-matter header.
type v1Card struct {
	ID            string             `yaml:"id"`
	Summary       string             `yaml:"summary"`
	Authors       []Author           `yaml:"authors"`
	License       string             `yaml:"license"`
	LicenseName   string             `yaml:"license_name"`
	LicenseURL    string             `yaml:"license_url"`
	SoftwareName  string             `yaml:"software_name"`
	SoftwareHints []string           `yaml:"software_hints"`
	Language      []string           `yaml:"language"`
	Script        []string           `yaml:"script"`
	ModelType     []string           `yaml:"model_type"`
	Metrics       map[string]float64 `yaml:"metrics"`
	Datasets      []string           `yaml:"datasets"`
	BaseModel     []string           `yaml:"base_model"`
	Keywords      []string           `yaml:"keywords"`
	Tags          []string           `yaml:"tags"`
	Citation      string             `yaml:"citation"`
}

// BuildV1 normalizes a Markdown model card with YAML front matter into a
// V1Record. The Markdown body becomes the record description; any
// OAI-derived description is discarded.
func BuildV1(base *DCATRecord, raw []byte, v Validator) (*V1Record, error) {
	header, body, err := SplitFrontMatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("model card for %s: %w", base.DOI, err)
	}

	var generic map[string]interface{}
	if err := yaml.Unmarshal([]byte(header), &generic); err != nil {
		return nil, fmt.Errorf("metadata for %s not in YAML format: %w", base.DOI, err)
	}
	// Round-trip through JSON so the validator sees encoding/json value
	// types regardless of what the YAML decoder produced.
	jsonDoc, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s not in YAML format: %w", base.DOI, err)
	}
	var jsonGeneric interface{}
	if err := json.Unmarshal(jsonDoc, &jsonGeneric); err != nil {
		return nil, fmt.Errorf("metadata for %s not in YAML format: %w", base.DOI, err)
	}
	if err := v.ValidateV1(jsonGeneric); err != nil {
		return nil, err
	}

	var card v1Card
	if err := yaml.Unmarshal([]byte(header), &card); err != nil {
		return nil, fmt.Errorf("metadata for %s not in YAML format: %w", base.DOI, err)
	}

	license := card.License
	licenseName := card.LicenseName
	if strings.HasPrefix(license, "other") {
		license = licenseName
	}

	b := base.Copy()

	rec := &V1Record{
		DOI:             doi.Bare(b.DOI),
		ConceptDOI:      doi.Bare(b.ConceptDOI),
		Creators:        append(b.Creators, card.Authors...),
		Summary:         card.Summary,
		Description:     body,
		License:         license,
		SoftwareName:    card.SoftwareName,
		Script:          card.Script,
		Language:        card.Language,
		PublicationDate: b.Datestamp,
		Distribution:    b.Distribution,
		ModelType:       card.ModelType,
		LicenseURL:      card.LicenseURL,
		SoftwareHints:   card.SoftwareHints,
		Metrics:         card.Metrics,
		Datasets:        card.Datasets,
		BaseModel:       card.BaseModel,
		Keywords:        mergeKeywords(card.Keywords, card.Tags),
		Citation:        card.Citation,
	}
	return rec, nil
}

// mergeKeywords unions the keywords and tags fields, deduplicated. The
// result is sorted for deterministic serialization; callers must not rely on
// any particular order.
func mergeKeywords(keywords, tags []string) []string {
	seen := make(map[string]struct{}, len(keywords)+len(tags))
	for _, k := range keywords {
		seen[k] = struct{}{}
	}
	for _, t := range tags {
		seen[t] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package record defines the repository record shapes for both model-card
// schema generations and the transformations that build them from harvested
// OAI payloads.
package record

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version tags the model-card schema generation of a record.
type Version string

const (
	// V0 is the legacy JSON metadata.json generation.
	V0 Version = "v0"
	// V1 is the YAML-front-matter README.md generation.
	V1 Version = "v1"
)

// Author is a record creator or model-card author.
type Author struct {
	Name        string `json:"name" yaml:"name"`
	ORCID       string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// Distribution is one downloadable file of a record. Size is -1 when the
// repository did not report one.
type Distribution struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// V0Metrics holds the single quality metric of the legacy schema.
type V0Metrics struct {
	CER float64 `json:"cer"`
}

// Meta is the version-independent subset of a record used for listings.
type Meta struct {
	DOI             string
	ConceptDOI      string
	Summary         string
	PublicationDate time.Time
	ModelType       []string
	Keywords        []string
}

// Record is the tagged union over the two repository record generations.
type Record interface {
	// SchemaVersion reports the model-card generation.
	SchemaVersion() Version
	// Meta returns the version-independent fields.
	Meta() Meta
}

// V0Record is a legacy record. Instances are built once by BuildV0 or
// decoded from a cache entry and never mutated.
type V0Record struct {
	DOI             string         `json:"doi"`
	ConceptDOI      string         `json:"concept_doi"`
	Creators        []Author       `json:"creators"`
	Summary         string         `json:"summary"`
	Description     string         `json:"description"`
	Metrics         V0Metrics      `json:"metrics"`
	License         string         `json:"license"`
	Script          []string       `json:"script"`
	Distribution    []Distribution `json:"distribution"`
	Graphemes       []string       `json:"graphemes"`
	PublicationDate time.Time      `json:"publication_date"`
	ModelType       []string       `json:"model_type"`
	Keywords        []string       `json:"keywords,omitempty"`
}

func (r *V0Record) SchemaVersion() Version { return V0 }

func (r *V0Record) Meta() Meta {
	return Meta{
		DOI:             r.DOI,
		ConceptDOI:      r.ConceptDOI,
		Summary:         r.Summary,
		PublicationDate: r.PublicationDate,
		ModelType:       r.ModelType,
		Keywords:        r.Keywords,
	}
}

// V1Record is a current-generation record. Description holds the Markdown
// body of the model card.
type V1Record struct {
	DOI             string             `json:"doi"`
	ConceptDOI      string             `json:"concept_doi"`
	Creators        []Author           `json:"creators"`
	Summary         string             `json:"summary"`
	Description     string             `json:"description"`
	License         string             `json:"license"`
	SoftwareName    string             `json:"software_name"`
	Script          []string           `json:"script"`
	Language        []string           `json:"language"`
	PublicationDate time.Time          `json:"publication_date"`
	Distribution    []Distribution     `json:"distribution"`
	ModelType       []string           `json:"model_type"`
	LicenseURL      string             `json:"license_url,omitempty"`
	SoftwareHints   []string           `json:"software_hints,omitempty"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
	Datasets        []string           `json:"datasets,omitempty"`
	BaseModel       []string           `json:"base_model,omitempty"`
	Keywords        []string           `json:"keywords,omitempty"`
	Citation        string             `json:"citation,omitempty"`
}

func (r *V1Record) SchemaVersion() Version { return V1 }

func (r *V1Record) Meta() Meta {
	return Meta{
		DOI:             r.DOI,
		ConceptDOI:      r.ConceptDOI,
		Summary:         r.Summary,
		PublicationDate: r.PublicationDate,
		ModelType:       r.ModelType,
		Keywords:        r.Keywords,
	}
}

// PickPreferred resolves the version preference over a record set: the v1
// record when present, the v0 record otherwise, nil when the set is empty.
func PickPreferred(records map[Version]Record) Record {
	if r, ok := records[V1]; ok {
		return r
	}
	if r, ok := records[V0]; ok {
		return r
	}
	return nil
}

// Envelope is the serialized form of a Record used by the cache.
type Envelope struct {
	Version Version         `json:"version"`
	Record  json.RawMessage `json:"record"`
}

// Wrap serializes a record into an envelope.
func Wrap(r Record) (*Envelope, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return &Envelope{Version: r.SchemaVersion(), Record: raw}, nil
}

// Decode deserializes the enveloped record back into its concrete type.
func (e *Envelope) Decode() (Record, error) {
	switch e.Version {
	case V0:
		var r V0Record
		if err := json.Unmarshal(e.Record, &r); err != nil {
			return nil, err
		}
		return &r, nil
	case V1:
		var r V1Record
		if err := json.Unmarshal(e.Record, &r); err != nil {
			return nil, err
		}
		return &r, nil
	default:
		return nil, fmt.Errorf("unknown record version %q", e.Version)
	}
}

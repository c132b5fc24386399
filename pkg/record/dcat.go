package record

import (
	"encoding/xml"
	"fmt"
	"time"
)

// DCATRecord is the version-independent metadata harvested from one OAI DCAT
// record, together with its OAI header fields. It seeds both normalizers.
type DCATRecord struct {
	DOI          string
	ConceptDOI   string
	Summary      string
	Description  string
	Creators     []Author
	Keywords     []string
	Distribution []Distribution
	// Datestamp is the OAI header datestamp, not any date carried inside
	// the metadata payload.
	Datestamp time.Time
	Deleted   bool
}

// Copy returns a deep copy so normalizers never mutate shared state.
func (d *DCATRecord) Copy() *DCATRecord {
	out := *d
	out.Creators = append([]Author(nil), d.Creators...)
	out.Keywords = append([]string(nil), d.Keywords...)
	out.Distribution = append([]Distribution(nil), d.Distribution...)
	return &out
}

// Unqualified element names below match the local part of the namespaced
// DCAT/RDF element names (dct:identifier, dcat:distribution, foaf:name, ...).
type rdfEnvelope struct {
	XMLName     xml.Name        `xml:"RDF"`
	Description dcatDescription `xml:"Description"`
}

type dcatDescription struct {
	Identifier   string         `xml:"identifier"`
	Title        string         `xml:"title"`
	Description  string         `xml:"description"`
	Keywords     []string       `xml:"keyword"`
	Creators     []dcatCreator  `xml:"creator>Description"`
	ConceptID    string         `xml:"isVersionOf>Description>identifier"`
	Distribution []dcatDistElem `xml:"distribution>Distribution"`
}

type dcatCreator struct {
	About       string `xml:"about,attr"`
	Name        string `xml:"name"`
	Affiliation string `xml:"memberOf>Organization>name"`
}

type dcatDistElem struct {
	DownloadURL struct {
		Resource string `xml:"resource,attr"`
	} `xml:"downloadURL"`
	ByteSize *int64 `xml:"byteSize"`
}

// ParseDCAT maps the raw RDF/XML payload of one OAI record to a DCATRecord.
// The OAI header fields (datestamp, deleted) are left for the caller to fill.
func ParseDCAT(raw []byte) (*DCATRecord, error) {
	var env rdfEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing DCAT payload: %w", err)
	}
	desc := env.Description

	rec := &DCATRecord{
		DOI:         desc.Identifier,
		ConceptDOI:  desc.ConceptID,
		Summary:     desc.Title,
		Description: desc.Description,
		Keywords:    desc.Keywords,
	}
	for _, c := range desc.Creators {
		rec.Creators = append(rec.Creators, Author{
			Name:        c.Name,
			ORCID:       c.About,
			Affiliation: c.Affiliation,
		})
	}
	for _, d := range desc.Distribution {
		if d.DownloadURL.Resource == "" {
			continue
		}
		size := int64(-1)
		if d.ByteSize != nil {
			size = *d.ByteSize
		}
		rec.Distribution = append(rec.Distribution, Distribution{
			URL:  d.DownloadURL.Resource,
			Size: size,
		})
	}
	return rec, nil
}

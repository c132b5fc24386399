package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDCAT(t *testing.T) {
	raw := []byte(`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:dct="http://purl.org/dc/terms/" xmlns:dcat="http://www.w3.org/ns/dcat#" xmlns:foaf="http://xmlns.com/foaf/0.1/" xmlns:org="http://www.w3.org/ns/org#">
  <rdf:Description rdf:about="https://zenodo.org/record/7547437">
    <dct:identifier>https://doi.org/10.5281/zenodo.7547437</dct:identifier>
    <dct:title>Printed Urdu Base Model</dct:title>
    <dct:description>A recognition model.</dct:description>
    <dcat:keyword>kraken</dcat:keyword>
    <dcat:keyword>urdu</dcat:keyword>
    <dct:creator>
      <rdf:Description rdf:about="https://orcid.org/0000-0002-1756-908X">
        <foaf:name>Kiessling, Benjamin</foaf:name>
        <org:memberOf><foaf:Organization><foaf:name>UPSL</foaf:name></foaf:Organization></org:memberOf>
      </rdf:Description>
    </dct:creator>
    <dct:creator>
      <rdf:Description>
        <foaf:name>Romanov, Maxim</foaf:name>
      </rdf:Description>
    </dct:creator>
    <dct:isVersionOf>
      <rdf:Description>
        <dct:identifier>https://doi.org/10.5281/zenodo.7547436</dct:identifier>
      </rdf:Description>
    </dct:isVersionOf>
    <dcat:distribution>
      <dcat:Distribution>
        <dcat:downloadURL rdf:resource="https://zenodo.org/api/files/abc/model.mlmodel"/>
        <dcat:byteSize>16245351</dcat:byteSize>
      </dcat:Distribution>
    </dcat:distribution>
    <dcat:distribution>
      <dcat:Distribution>
        <dcat:downloadURL rdf:resource="https://zenodo.org/api/files/abc/README.md"/>
      </dcat:Distribution>
    </dcat:distribution>
    <dcat:distribution>
      <dcat:Distribution>
        <dcat:byteSize>12</dcat:byteSize>
      </dcat:Distribution>
    </dcat:distribution>
  </rdf:Description>
</rdf:RDF>`)

	rec, err := ParseDCAT(raw)
	require.NoError(t, err)

	assert.Equal(t, "https://doi.org/10.5281/zenodo.7547437", rec.DOI)
	assert.Equal(t, "https://doi.org/10.5281/zenodo.7547436", rec.ConceptDOI)
	assert.Equal(t, "Printed Urdu Base Model", rec.Summary)
	assert.Equal(t, "A recognition model.", rec.Description)
	assert.Equal(t, []string{"kraken", "urdu"}, rec.Keywords)

	require.Len(t, rec.Creators, 2)
	assert.Equal(t, "Kiessling, Benjamin", rec.Creators[0].Name)
	assert.Equal(t, "https://orcid.org/0000-0002-1756-908X", rec.Creators[0].ORCID)
	assert.Equal(t, "UPSL", rec.Creators[0].Affiliation)
	assert.Empty(t, rec.Creators[1].ORCID)

	// entries without a download URL are dropped; a missing byteSize
	// becomes -1
	require.Len(t, rec.Distribution, 2)
	assert.Equal(t, int64(16245351), rec.Distribution[0].Size)
	assert.Equal(t, int64(-1), rec.Distribution[1].Size)
}

func TestParseDCATMalformed(t *testing.T) {
	_, err := ParseDCAT([]byte("<not-closed"))
	assert.Error(t, err)
}

func TestDCATRecordCopy(t *testing.T) {
	orig := &DCATRecord{
		DOI:          "10.5281/zenodo.1",
		Creators:     []Author{{Name: "a"}},
		Keywords:     []string{"k"},
		Distribution: []Distribution{{URL: "u", Size: 1}},
	}
	cp := orig.Copy()
	cp.Creators = append(cp.Creators, Author{Name: "b"})
	cp.Keywords[0] = "changed"

	assert.Len(t, orig.Creators, 1)
	assert.Equal(t, "k", orig.Keywords[0])
}

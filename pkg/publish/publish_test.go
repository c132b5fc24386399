package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mittagessen/HTRMoPo/pkg/schema"
	"github.com/mittagessen/HTRMoPo/pkg/vocab"
	"github.com/mittagessen/HTRMoPo/pkg/zenodo"
)

const testCard = `---
id: null
summary: Printed Urdu Base Model
authors:
  - name: Kiessling, Benjamin
license: cc-by-4.0
software_name: kraken
script:
  - Arab
language:
  - urd
model_type:
  - recognition
tags:
  - kraken
datasets:
  - https://doi.org/10.5281/zenodo.1000000
base_model:
  - 10.5281/zenodo.2000000
---
A recognition model trained on *printed* Urdu.
`

// fakeDeposit implements the deposition endpoints of the Zenodo API.
type fakeDeposit struct {
	server    *httptest.Server
	uploads   map[string][]byte
	metadata  *zenodo.DepositionMetadata
	published bool
}

func newFakeDeposit(t *testing.T) *fakeDeposit {
	f := &fakeDeposit{uploads: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/deposit/depositions", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "tok", r.URL.Query().Get("access_token"))
		fmt.Fprintf(w, `{"id": 123, "links": {"bucket": "%s/files/bkt"}, "metadata": {"prereserve_doi": {"doi": "10.5281/zenodo.123"}}}`, f.server.URL)
	})
	mux.HandleFunc("/files/bkt/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		f.uploads[filepath.Base(r.URL.Path)] = body
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/deposit/depositions/123", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var payload map[string]*zenodo.DepositionMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.metadata = payload["metadata"]
		fmt.Fprint(w, `{"id": 123}`)
	})
	mux.HandleFunc("/deposit/depositions/123/actions/publish", func(w http.ResponseWriter, r *http.Request) {
		f.published = true
		fmt.Fprint(w, `{"id": 123, "doi": "10.5281/zenodo.123"}`)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newPublisher(t *testing.T, baseURL string) *Publisher {
	tables, err := vocab.Load()
	require.NoError(t, err)
	validator, err := schema.NewValidator(tables)
	require.NoError(t, err)
	return New(baseURL, validator)
}

func modelDir(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model.mlmodel"), []byte("weights"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("stray"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	return dir
}

func TestPublish(t *testing.T) {
	f := newFakeDeposit(t)
	p := newPublisher(t, f.server.URL+"/")

	doi, err := p.Publish(context.Background(), Params{
		Model:       modelDir(t),
		ModelCard:   testCard,
		AccessToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "10.5281/zenodo.123", doi)
	assert.True(t, f.published)

	// model files are uploaded, the stray root README.md and the
	// subdirectory are not
	assert.Equal(t, "weights", string(f.uploads["model.mlmodel"]))
	require.Contains(t, f.uploads, "README.md")
	assert.NotEqual(t, "stray", string(f.uploads["README.md"]))

	// the uploaded card carries the prereserved DOI and keeps the body
	readme := string(f.uploads["README.md"])
	assert.True(t, strings.HasPrefix(readme, "---\n"))
	assert.Contains(t, readme, "id: 10.5281/zenodo.123")
	assert.Contains(t, readme, "A recognition model trained on *printed* Urdu.")

	require.NotNil(t, f.metadata)
	assert.Equal(t, "Printed Urdu Base Model", f.metadata.Title)
	assert.Equal(t, "publication", f.metadata.UploadType)
	assert.Equal(t, "other", f.metadata.PublicationType)
	assert.Contains(t, f.metadata.Description, "<em>printed</em>")
	require.Len(t, f.metadata.Creators, 1)
	assert.Equal(t, "Kiessling, Benjamin", f.metadata.Creators[0].Name)
	assert.Equal(t, "cc-by-4.0", f.metadata.License)
	assert.Equal(t, []string{"kraken"}, f.metadata.Keywords)
	require.Len(t, f.metadata.Communities, 1)
	assert.Equal(t, "ocr_models", f.metadata.Communities[0].Identifier)
	require.Len(t, f.metadata.RelatedIdentifiers, 2)
	assert.Equal(t, "dataset", f.metadata.RelatedIdentifiers[0].ResourceType)
	assert.Equal(t, "other", f.metadata.RelatedIdentifiers[1].ResourceType)
}

func TestPublishPrivateSkipsCommunity(t *testing.T) {
	f := newFakeDeposit(t)
	p := newPublisher(t, f.server.URL+"/")

	_, err := p.Publish(context.Background(), Params{
		Model:       modelDir(t),
		ModelCard:   testCard,
		AccessToken: "tok",
		Private:     true,
	})
	require.NoError(t, err)
	assert.Empty(t, f.metadata.Communities)
}

func TestPublishSingleFileModel(t *testing.T) {
	f := newFakeDeposit(t)
	p := newPublisher(t, f.server.URL+"/")

	file := filepath.Join(t.TempDir(), "model.mlmodel")
	require.NoError(t, os.WriteFile(file, []byte("weights"), 0o644))

	_, err := p.Publish(context.Background(), Params{
		Model:       file,
		ModelCard:   testCard,
		AccessToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "weights", string(f.uploads["model.mlmodel"]))
}

func TestPublishInvalidCard(t *testing.T) {
	f := newFakeDeposit(t)
	p := newPublisher(t, f.server.URL+"/")

	// missing required fields fails validation after DOI injection
	_, err := p.Publish(context.Background(), Params{
		Model:       modelDir(t),
		ModelCard:   "---\nsummary: incomplete\n---\nbody\n",
		AccessToken: "tok",
	})
	require.Error(t, err)
	assert.False(t, f.published)
}

func TestUpdateResolvesConceptDOI(t *testing.T) {
	var f *fakeDeposit
	mux := http.NewServeMux()
	mux.HandleFunc("/records/100", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 101, "doi": "10.5281/zenodo.101"}`)
	})
	mux.HandleFunc("/deposit/depositions/101/actions/newversion", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id": 123, "links": {"bucket": "%s/files/bkt"}, "metadata": {"prereserve_doi": {"doi": "10.5281/zenodo.123"}}}`, f.server.URL)
	})
	f = &fakeDeposit{uploads: map[string][]byte{}}
	mux.HandleFunc("/files/bkt/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.uploads[filepath.Base(r.URL.Path)] = body
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/deposit/depositions/123", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 123}`)
	})
	mux.HandleFunc("/deposit/depositions/123/actions/publish", func(w http.ResponseWriter, r *http.Request) {
		f.published = true
		fmt.Fprint(w, `{"id": 123, "doi": "10.5281/zenodo.123"}`)
	})
	f.server = httptest.NewServer(mux)
	defer f.server.Close()

	p := newPublisher(t, f.server.URL+"/")
	doi, err := p.Update(context.Background(), "10.5281/zenodo.100", Params{
		Model:       modelDir(t),
		ModelCard:   testCard,
		AccessToken: "tok",
	})
	require.NoError(t, err)
	assert.Equal(t, "10.5281/zenodo.123", doi)
	assert.True(t, f.published)
	assert.Contains(t, f.uploads, "README.md")
}

package zenodo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/records/7547436", r.URL.Path)
		fmt.Fprint(w, `{"id": 7547437, "doi": "10.5281/zenodo.7547437", "metadata": {"title": "Printed Urdu Base Model"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	rec, err := client.GetRecord(context.Background(), "7547436")
	require.NoError(t, err)
	assert.Equal(t, 7547437, rec.ID)
	assert.Equal(t, "10.5281/zenodo.7547437", rec.DOI)
	assert.Equal(t, "Printed Urdu Base Model", rec.Metadata.Title)
}

func TestGetRecordNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status": 404}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(server.URL + "/").GetRecord(context.Background(), "999")
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
}

func TestCreateDeposition(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/deposit/depositions", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("access_token"))
		fmt.Fprint(w, `{"id": 123, "links": {"bucket": "https://example.com/files/abc"}, "metadata": {"prereserve_doi": {"doi": "10.5281/zenodo.123"}}}`)
	}))
	defer server.Close()

	client := NewDepositionClient(server.URL+"/", "secret")
	dep, err := client.CreateDeposition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 123, dep.ID)
	assert.Equal(t, "https://example.com/files/abc", dep.Links.Bucket)
	assert.Equal(t, "10.5281/zenodo.123", dep.Metadata.PrereserveDOI.DOI)
}

func TestNewVersionFollowsDraftLink(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/actions/newversion"):
			fmt.Fprintf(w, `{"id": 100, "links": {"latest_draft": "%s/deposit/depositions/456"}}`, server.URL)
		case r.Method == http.MethodGet && r.URL.Path == "/deposit/depositions/456":
			fmt.Fprint(w, `{"id": 456, "links": {"bucket": "https://example.com/files/new"}, "metadata": {"prereserve_doi": {"doi": "10.5281/zenodo.456"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewDepositionClient(server.URL+"/", "secret")
	dep, err := client.NewVersion(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, 456, dep.ID)
	assert.Equal(t, "https://example.com/files/new", dep.Links.Bucket)
}

func TestUploadFile(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/files/abc/model.mlmodel", r.URL.Path)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewDepositionClient(server.URL+"/", "secret")
	var written int
	err := client.UploadFile(context.Background(), server.URL+"/files/abc", "model.mlmodel",
		strings.NewReader("model bytes"), func(n int) { written += n })
	require.NoError(t, err)
	assert.Equal(t, "model bytes", string(gotBody))
	assert.Equal(t, len("model bytes"), written)
}

func TestPutMetadata(t *testing.T) {
	var got map[string]DepositionMetadata
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/deposit/depositions/123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"id": 123}`)
	}))
	defer server.Close()

	client := NewDepositionClient(server.URL+"/", "secret")
	err := client.PutMetadata(context.Background(), 123, &DepositionMetadata{
		Title:       "Printed Urdu Base Model",
		UploadType:  "publication",
		Description: "<p>trained on printed Urdu</p>",
		Creators:    []Creator{{Name: "Kiessling, Benjamin"}},
		Communities: []Community{{Identifier: "ocr_models"}},
	})
	require.NoError(t, err)
	meta := got["metadata"]
	assert.Equal(t, "Printed Urdu Base Model", meta.Title)
	require.Len(t, meta.Communities, 1)
	assert.Equal(t, "ocr_models", meta.Communities[0].Identifier)
}

func TestPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/deposit/depositions/123/actions/publish", r.URL.Path)
		fmt.Fprint(w, `{"id": 123, "doi": "10.5281/zenodo.123"}`)
	}))
	defer server.Close()

	client := NewDepositionClient(server.URL+"/", "secret")
	doi, err := client.Publish(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, "10.5281/zenodo.123", doi)
}

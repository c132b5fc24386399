// Package zenodo is a minimal client for the Zenodo REST API covering the
// operations needed to resolve records and to publish depositions.
package zenodo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mittagessen/HTRMoPo/pkg/observability"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
)

// Client talks to the Zenodo REST API. The access token is only needed for
// deposition operations.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a read-only client for the given API base URL. The URL
// must end with a slash.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// NewDepositionClient creates a client authorized for deposition operations.
func NewDepositionClient(baseURL, accessToken string) *Client {
	c := NewClient(baseURL)
	c.accessToken = accessToken
	return c
}

// HTTPError is a non-2xx response from the REST API.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Zenodo API request failed with status %d: %s", e.Status, e.Body)
}

// Record is the subset of a published record the client needs.
type Record struct {
	ID       int    `json:"id"`
	DOI      string `json:"doi"`
	Metadata struct {
		Title           string `json:"title"`
		PublicationDate string `json:"publication_date"`
	} `json:"metadata"`
}

// Deposition is an unpublished or draft deposition.
type Deposition struct {
	ID    int `json:"id"`
	Links struct {
		Bucket string `json:"bucket"`
		Latest string `json:"latest_draft"`
	} `json:"links"`
	Metadata struct {
		PrereserveDOI struct {
			DOI string `json:"doi"`
		} `json:"prereserve_doi"`
	} `json:"metadata"`
	DOI string `json:"doi"`
}

// DepositionMetadata is the metadata document attached to a deposition
// before publication.
type DepositionMetadata struct {
	Title              string              `json:"title"`
	UploadType         string              `json:"upload_type"`
	PublicationType    string              `json:"publication_type,omitempty"`
	Description        string              `json:"description"`
	Creators           []Creator           `json:"creators"`
	Keywords           []string            `json:"keywords,omitempty"`
	License            string              `json:"license,omitempty"`
	AccessRight        string              `json:"access_right,omitempty"`
	Communities        []Community         `json:"communities,omitempty"`
	RelatedIdentifiers []RelatedIdentifier `json:"related_identifiers,omitempty"`
}

// Creator is an author entry in deposition metadata.
type Creator struct {
	Name        string `json:"name"`
	ORCID       string `json:"orcid,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

// Community is a community membership request on a deposition.
type Community struct {
	Identifier string `json:"identifier"`
}

// RelatedIdentifier links a deposition to datasets or ancestor models.
type RelatedIdentifier struct {
	Identifier   string `json:"identifier"`
	Relation     string `json:"relation"`
	ResourceType string `json:"resource_type,omitempty"`
}

func (c *Client) endpoint(path string) string {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if c.accessToken != "" {
		u += "?" + url.Values{"access_token": {c.accessToken}}.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("building API request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetRecord fetches a published record by its numeric Zenodo id. Concept
// DOIs resolve to the latest published version.
func (c *Client) GetRecord(ctx context.Context, recid string) (*Record, error) {
	var rec Record
	if err := c.do(ctx, http.MethodGet, "records/"+recid, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateDeposition creates a fresh empty deposition and returns it with a
// prereserved DOI.
func (c *Client) CreateDeposition(ctx context.Context) (*Deposition, error) {
	var dep Deposition
	if err := c.do(ctx, http.MethodPost, "deposit/depositions", strings.NewReader("{}"), &dep); err != nil {
		return nil, err
	}
	logging.Infof("Created deposition %d with prereserved DOI %s", dep.ID, dep.Metadata.PrereserveDOI.DOI)
	return &dep, nil
}

// NewVersion creates a draft deposition for a new version of the record
// identified by recid and returns the draft.
func (c *Client) NewVersion(ctx context.Context, recid string) (*Deposition, error) {
	var dep Deposition
	if err := c.do(ctx, http.MethodPost, "deposit/depositions/"+recid+"/actions/newversion", nil, &dep); err != nil {
		return nil, err
	}
	if dep.Links.Latest != "" {
		// the draft lives at a new deposition id reachable through the
		// latest_draft link
		draftID := dep.Links.Latest[strings.LastIndex(dep.Links.Latest, "/")+1:]
		return c.GetDeposition(ctx, draftID)
	}
	return &dep, nil
}

// GetDeposition fetches a draft deposition by id.
func (c *Client) GetDeposition(ctx context.Context, id string) (*Deposition, error) {
	var dep Deposition
	if err := c.do(ctx, http.MethodGet, "deposit/depositions/"+id, nil, &dep); err != nil {
		return nil, err
	}
	return &dep, nil
}

// UploadFile streams a file into the deposition's bucket under the given
// name. Progress, when non-nil, is called with the number of bytes written
// after each chunk.
func (c *Client) UploadFile(ctx context.Context, bucketURL, name string, r io.Reader, progress func(n int)) error {
	body := r
	if progress != nil {
		body = &countingReader{r: r, fn: progress}
	}
	u := bucketURL + "/" + url.PathEscape(name)
	if c.accessToken != "" {
		u += "?" + url.Values{"access_token": {c.accessToken}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, body)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &HTTPError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

type countingReader struct {
	r  io.Reader
	fn func(n int)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.fn(n)
		observability.BytesUploaded.Add(float64(n))
	}
	return n, err
}

// PutMetadata replaces the metadata of a draft deposition.
func (c *Client) PutMetadata(ctx context.Context, depositionID int, meta *DepositionMetadata) error {
	payload, err := json.Marshal(map[string]*DepositionMetadata{"metadata": meta})
	if err != nil {
		return fmt.Errorf("encoding deposition metadata: %w", err)
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("deposit/depositions/%d", depositionID), bytes.NewReader(payload), nil)
}

// Publish publishes a draft deposition and returns the DOI of the published
// record.
func (c *Client) Publish(ctx context.Context, depositionID int) (string, error) {
	var dep Deposition
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("deposit/depositions/%d/actions/publish", depositionID), nil, &dep); err != nil {
		return "", err
	}
	return dep.DOI, nil
}

// DeleteDeposition discards a draft deposition, used to clean up after a
// failed publication.
func (c *Client) DeleteDeposition(ctx context.Context, depositionID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("deposit/depositions/%d", depositionID), nil, nil)
}

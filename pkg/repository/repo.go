// Package repository implements the high-level accessors to the model
// repository: metadata resolution for single models, full listings and model
// file retrieval, all backed by an on-disk cache.
package repository

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"github.com/mittagessen/HTRMoPo/pkg/cache"
	"github.com/mittagessen/HTRMoPo/pkg/config"
	"github.com/mittagessen/HTRMoPo/pkg/doi"
	"github.com/mittagessen/HTRMoPo/pkg/oai"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
	"github.com/mittagessen/HTRMoPo/pkg/record"
	"github.com/mittagessen/HTRMoPo/pkg/schema"
	"github.com/mittagessen/HTRMoPo/pkg/vocab"
	"github.com/mittagessen/HTRMoPo/pkg/zenodo"
)

// Options configures a Repo. Zero-valued fields are filled with defaults
// derived from Config.
type Options struct {
	Config    config.Config
	OAI       *oai.Client
	API       *zenodo.Client
	Validator *schema.Validator
	Store     cache.Store
}

// Repo is the accessor to one model repository.
type Repo struct {
	cfg        config.Config
	oai        *oai.Client
	api        *zenodo.Client
	validator  *schema.Validator
	store      cache.Store
	httpClient *http.Client
}

// New creates a repository accessor.
func New(opts Options) (*Repo, error) {
	r := &Repo{
		cfg:        opts.Config,
		oai:        opts.OAI,
		api:        opts.API,
		validator:  opts.Validator,
		store:      opts.Store,
		httpClient: &http.Client{},
	}
	if r.oai == nil {
		r.oai = oai.NewClient(r.cfg.OAIBaseURL)
	}
	if r.api == nil {
		r.api = zenodo.NewClient(r.cfg.APIBaseURL)
	}
	if r.validator == nil {
		tables, err := vocab.Load()
		if err != nil {
			return nil, err
		}
		if r.validator, err = schema.NewValidator(tables); err != nil {
			return nil, err
		}
	}
	if r.store == nil {
		store, err := cache.New(cache.Config{Enabled: true, Dir: r.cfg.CacheDir})
		if err != nil {
			return nil, err
		}
		r.store = store
	}
	return r, nil
}

// ResolveIdentifier translates a model identifier into its OAI id.
func (r *Repo) ResolveIdentifier(modelID string) (string, error) {
	oaiID, ok := doi.ToOAIID(doi.Bare(modelID))
	if !ok {
		return "", fmt.Errorf("%s: %w", modelID, ErrInvalidDOI)
	}
	return oaiID, nil
}

// fetchRecord harvests the DCAT record for a model. Concept DOIs do not
// show up in OAI so a failed lookup is retried once through the REST API
// which resolves them to the DOI of the latest version.
func (r *Repo) fetchRecord(ctx context.Context, modelID string) (*record.DCATRecord, error) {
	oaiID, err := r.ResolveIdentifier(modelID)
	if err != nil {
		return nil, err
	}
	rec, err := r.oai.GetRecord(ctx, oaiID)
	if err == nil {
		return rec, nil
	}
	if !oai.IsNotFound(err) {
		return nil, err
	}

	recid, ok := doi.ToZenodoID(doi.Bare(modelID))
	if !ok {
		return nil, err
	}
	logging.Infof("No OAI record for %s, resolving through the REST API", modelID)
	restRec, restErr := r.api.GetRecord(ctx, recid)
	if restErr != nil {
		return nil, fmt.Errorf("resolving %s: %w", modelID, restErr)
	}
	realOAIID, ok := doi.ToOAIID(doi.Bare(restRec.DOI))
	if !ok {
		return nil, fmt.Errorf("%s: %w", restRec.DOI, ErrInvalidDOI)
	}
	return r.oai.GetRecord(ctx, realOAIID)
}

// download fetches one distribution file into memory.
func (r *Repo) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: status %d", fileURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fileName extracts the file name from a distribution download URL.
func fileName(fileURL string) string {
	u, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

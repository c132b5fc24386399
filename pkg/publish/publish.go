// Package publish implements model publication to the repository: creating
// or versioning a Zenodo deposition, uploading the model files and the
// model card and filling in the deposition metadata.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"github.com/mittagessen/HTRMoPo/pkg/doi"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
	"github.com/mittagessen/HTRMoPo/pkg/record"
	"github.com/mittagessen/HTRMoPo/pkg/schema"
	"github.com/mittagessen/HTRMoPo/pkg/zenodo"
)

// Params describe one publication.
type Params struct {
	// Model is the path of the model, either a single file or a flat
	// directory.
	Model string
	// ModelCard is a Markdown document with a YAML front matter header.
	ModelCard string
	// AccessToken is the Zenodo API token authorizing the deposition.
	AccessToken string
	// Private suppresses the community inclusion request that makes the
	// model publicly discoverable.
	Private bool
	// Progress, when non-nil, is called with octet-wise progress.
	Progress func(total, advance int64)
}

// Publisher performs publication sequences against one repository.
type Publisher struct {
	baseURL   string
	validator *schema.Validator
}

// New creates a publisher for the API endpoint at baseURL.
func New(baseURL string, validator *schema.Validator) *Publisher {
	return &Publisher{baseURL: baseURL, validator: validator}
}

// Publish creates a fresh record from the model and its card and returns
// the DOI of the published deposition.
func (p *Publisher) Publish(ctx context.Context, params Params) (string, error) {
	files, size, err := collectFiles(params.Model)
	if err != nil {
		return "", err
	}
	// three metadata round trips besides the uploads
	size += 3

	card, err := parseCard(params.ModelCard)
	if err != nil {
		return "", err
	}

	api := zenodo.NewDepositionClient(p.baseURL, params.AccessToken)
	dep, err := api.CreateDeposition(ctx)
	if err != nil {
		return "", err
	}
	return p.finishDeposition(ctx, api, dep, card, files, size, params)
}

// Update creates a new version of the record identified by modelID,
// uploads the model and card into the draft and publishes it.
func (p *Publisher) Update(ctx context.Context, modelID string, params Params) (string, error) {
	files, size, err := collectFiles(params.Model)
	if err != nil {
		return "", err
	}
	// four metadata round trips besides the uploads
	size += 4

	card, err := parseCard(params.ModelCard)
	if err != nil {
		return "", err
	}

	recid, ok := doi.ToZenodoID(doi.Bare(modelID))
	if !ok {
		return "", fmt.Errorf("%s is not a valid DOI", modelID)
	}

	// the identifier might be a concept DOI which has to be resolved to
	// its latest version first
	api := zenodo.NewDepositionClient(p.baseURL, params.AccessToken)
	rec, err := zenodo.NewClient(p.baseURL).GetRecord(ctx, recid)
	if err != nil {
		return "", err
	}
	if newRecid, ok := doi.ToZenodoID(doi.Bare(rec.DOI)); ok && newRecid != recid {
		logging.Infof("Resolved %s to %s", recid, newRecid)
		recid = newRecid
	}
	progress(params)(size, 1)

	dep, err := api.NewVersion(ctx, recid)
	if err != nil {
		return "", err
	}
	progress(params)(size, 1)
	return p.finishDeposition(ctx, api, dep, card, files, size, params)
}

// finishDeposition runs the tail of both sequences: finalize and validate
// the card, upload it and the model files, fill the deposition metadata and
// publish.
func (p *Publisher) finishDeposition(ctx context.Context, api *zenodo.Client, dep *zenodo.Deposition, card *modelCard, files []string, size int64, params Params) (string, error) {
	cb := progress(params)

	// the card is only complete once the prereserved DOI is known, so
	// validation has to happen here
	card.meta["id"] = dep.Metadata.PrereserveDOI.DOI
	if err := p.validateCard(card.meta); err != nil {
		return "", err
	}

	header, err := yaml.Marshal(card.meta)
	if err != nil {
		return "", fmt.Errorf("serializing model card header: %w", err)
	}
	readme := []byte("---\n" + string(header) + "---\n" + card.body)
	size += int64(len(readme))
	cb(size, 1)

	if err := api.UploadFile(ctx, dep.Links.Bucket, "README.md", bytes.NewReader(readme), nil); err != nil {
		return "", err
	}
	cb(size, int64(len(readme)))

	for _, file := range files {
		if err := uploadOne(ctx, api, dep.Links.Bucket, file, size, cb); err != nil {
			return "", err
		}
	}

	meta, err := depositionMetadata(card, params.Private)
	if err != nil {
		return "", err
	}
	if err := api.PutMetadata(ctx, dep.ID, meta); err != nil {
		return "", err
	}
	cb(size, 1)

	published, err := api.Publish(ctx, dep.ID)
	if err != nil {
		return "", err
	}
	cb(size, 1)
	return published, nil
}

func uploadOne(ctx context.Context, api *zenodo.Client, bucketURL, file string, size int64, cb func(total, advance int64)) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := api.UploadFile(ctx, bucketURL, filepath.Base(file), f, nil); err != nil {
		return err
	}
	cb(size, info.Size())
	return nil
}

// collectFiles gathers the files of a deposition. Zenodo depositions are
// flat, so subdirectories are skipped, as is a README.md in the model root
// which would collide with the card.
func collectFiles(model string) ([]string, int64, error) {
	info, err := os.Stat(model)
	if err != nil {
		return nil, 0, fmt.Errorf("model path %s: %w", model, err)
	}
	if !info.IsDir() {
		return []string{model}, info.Size(), nil
	}

	entries, err := os.ReadDir(model)
	if err != nil {
		return nil, 0, err
	}
	var files []string
	var size int64
	for _, entry := range entries {
		if entry.IsDir() {
			logging.Warnf("Zenodo depositions are flat. Found dir %s. Skipping", entry.Name())
			continue
		}
		if entry.Name() == "README.md" {
			logging.Warnf("Found a README.md in root of model dir. Ignoring.")
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			return nil, 0, err
		}
		files = append(files, filepath.Join(model, entry.Name()))
		size += fi.Size()
	}
	logging.Infof("Got %d files for model with size of %d bytes", len(files), size)
	return files, size, nil
}

// modelCard is a split model card with its front matter decoded into a
// generic map so unknown keys survive the id injection round trip.
type modelCard struct {
	meta map[string]interface{}
	body string
}

func parseCard(doc string) (*modelCard, error) {
	header, body, err := record.SplitFrontMatter(doc)
	if err != nil {
		return nil, err
	}
	var meta map[string]interface{}
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return nil, fmt.Errorf("parsing model card header: %w", err)
	}
	return &modelCard{meta: meta, body: body}, nil
}

// validateCard checks the finalized front matter against the v1 schema.
// The document is round-tripped through JSON so number types match what the
// schema validator expects.
func (p *Publisher) validateCard(meta map[string]interface{}) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return p.validator.ValidateV1(doc)
}

func depositionMetadata(card *modelCard, private bool) (*zenodo.DepositionMetadata, error) {
	var rendered bytes.Buffer
	if err := goldmark.Convert([]byte(card.body), &rendered); err != nil {
		return nil, fmt.Errorf("rendering model card: %w", err)
	}

	var authors []zenodo.Creator
	if err := reencode(card.meta["authors"], &authors); err != nil {
		return nil, fmt.Errorf("decoding authors: %w", err)
	}

	meta := &zenodo.DepositionMetadata{
		Title:           stringField(card.meta, "summary"),
		UploadType:      "publication",
		PublicationType: "other",
		Description:     rendered.String(),
		Creators:        authors,
		AccessRight:     "open",
		License:         stringField(card.meta, "license"),
		Keywords:        stringsField(card.meta, "tags"),
	}
	if !private {
		meta.Communities = []zenodo.Community{{Identifier: "ocr_models"}}
	}
	for _, ds := range stringsField(card.meta, "datasets") {
		meta.RelatedIdentifiers = append(meta.RelatedIdentifiers, zenodo.RelatedIdentifier{
			Relation:     "isDerivedFrom",
			Identifier:   ds,
			ResourceType: "dataset",
		})
	}
	for _, mid := range stringsField(card.meta, "base_model") {
		meta.RelatedIdentifiers = append(meta.RelatedIdentifiers, zenodo.RelatedIdentifier{
			Relation:     "isDerivedFrom",
			Identifier:   mid,
			ResourceType: "other",
		})
	}
	return meta, nil
}

func reencode(in, out interface{}) error {
	if in == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func stringField(meta map[string]interface{}, key string) string {
	s, _ := meta[key].(string)
	return s
}

func stringsField(meta map[string]interface{}, key string) []string {
	vs, ok := meta[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		switch s := v.(type) {
		case string:
			out = append(out, s)
		default:
			out = append(out, fmt.Sprint(s))
		}
	}
	return out
}

func progress(params Params) func(total, advance int64) {
	if params.Progress != nil {
		return params.Progress
	}
	return func(int64, int64) {}
}

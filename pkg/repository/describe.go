package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mittagessen/HTRMoPo/pkg/cache"
	"github.com/mittagessen/HTRMoPo/pkg/doi"
	"github.com/mittagessen/HTRMoPo/pkg/observability"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
	"github.com/mittagessen/HTRMoPo/pkg/record"
)

// DescribeOptions modify a Describe call.
type DescribeOptions struct {
	// Version pins the returned model card generation. When empty the v1
	// card is preferred over v0.
	Version record.Version
	// Progress, when non-nil, is called once per HTTP round trip.
	Progress func()
}

// Describe fetches the metadata record of a single model. A cached record
// is served as long as its publication date is not older than the live OAI
// datestamp.
func (r *Repo) Describe(ctx context.Context, modelID string, opts DescribeOptions) (rec record.Record, err error) {
	defer func() { observability.RecordOperation("describe", err) }()

	progress := opts.Progress
	if progress == nil {
		progress = func() {}
	}

	logging.Infof("Retrieving metadata for %s", modelID)
	dcat, err := r.fetchRecord(ctx, modelID)
	if err != nil {
		return nil, err
	}
	progress()

	// pinned lookups bypass the cache so a pin can never be answered
	// with a record of the other generation
	store := r.store
	if opts.Version != "" {
		store = cache.Disabled()
	}

	key := describeKey(dcat.DOI)
	unlock, err := store.Lock(key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if entry, err := store.Get(key); err == nil && entry != nil && !entry.Stamp.Before(dcat.Datestamp) {
		var env record.Envelope
		if err := json.Unmarshal(entry.Payload, &env); err == nil {
			if cached, err := env.Decode(); err == nil {
				observability.CacheHits.WithLabelValues("describe").Inc()
				return cached, nil
			}
		}
		logging.Warnf("Discarding undecodable cache entry for %s", modelID)
	}
	observability.CacheMisses.WithLabelValues("describe").Inc()

	built, err := r.buildVersions(ctx, dcat, opts.Version, progress)
	if err != nil {
		return nil, err
	}
	preferred := record.PickPreferred(built)
	if preferred == nil {
		return nil, fmt.Errorf("%s: %w", modelID, ErrNoMetadata)
	}

	env, err := record.Wrap(preferred)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if err := store.Put(key, &cache.Entry{Stamp: dcat.Datestamp, Payload: payload}); err != nil {
		logging.Warnf("Writing cache entry for %s: %v", modelID, err)
	}
	return preferred, nil
}

// buildVersions downloads and normalizes the model cards found in a DCAT
// record's distribution list. Zenodo deposits have no directories so the
// file name alone identifies the card. With an unpinned lookup scanning
// stops once a v1 card has been built and a metadata.json is seen, since v1
// wins anyway.
func (r *Repo) buildVersions(ctx context.Context, dcat *record.DCATRecord, pin record.Version, progress func()) (map[record.Version]record.Record, error) {
	built := make(map[record.Version]record.Record)
scan:
	for _, dist := range dcat.Distribution {
		switch fileName(dist.URL) {
		case "README.md":
			if pin == record.V0 {
				continue
			}
			progress()
			raw, err := r.download(ctx, dist.URL)
			if err != nil {
				return nil, err
			}
			rec, err := record.BuildV1(dcat, raw, r.validator)
			if err != nil {
				logging.Infof("Invalid metadata for %s: %v", dcat.DOI, err)
				continue
			}
			built[record.V1] = rec
		case "metadata.json":
			if pin != record.V0 && built[record.V1] != nil {
				break scan
			}
			if pin == record.V1 {
				continue
			}
			progress()
			raw, err := r.download(ctx, dist.URL)
			if err != nil {
				return nil, err
			}
			rec, err := record.BuildV0(dcat, raw, r.validator)
			if err != nil {
				logging.Infof("Invalid metadata for %s: %v", dcat.DOI, err)
				continue
			}
			built[record.V0] = rec
		}
	}
	if pin != "" {
		if rec := built[pin]; rec != nil {
			return map[record.Version]record.Record{pin: rec}, nil
		}
		return nil, nil
	}
	return built, nil
}

func describeKey(recordDOI string) string {
	sum := sha256.Sum256([]byte(doi.Bare(recordDOI)))
	return hex.EncodeToString(sum[:])
}

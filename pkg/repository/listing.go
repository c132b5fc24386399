package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mittagessen/HTRMoPo/pkg/cache"
	"github.com/mittagessen/HTRMoPo/pkg/doi"
	"github.com/mittagessen/HTRMoPo/pkg/oai"
	"github.com/mittagessen/HTRMoPo/pkg/observability"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
	"github.com/mittagessen/HTRMoPo/pkg/record"
)

// listingKey holds the incremental listing cache.
const listingKey = "listing"

// ListingOptions modify a Listing call.
type ListingOptions struct {
	// From restricts the harvest to records with a datestamp at or after
	// the given ISO-8601 date. Setting it disables the listing cache for
	// both reads and writes.
	From string
	// Progress, when non-nil, is called with the total number of records
	// to harvest and the per-record advance.
	Progress func(total, advance int)
}

// Listing harvests the metadata of every model in the repository, keyed by
// DOI and model card generation. Without an explicit lower bound only
// records changed since the last harvest are fetched and merged into the
// cached listing.
func (r *Repo) Listing(ctx context.Context, opts ListingOptions) (items map[string]map[record.Version]record.Record, err error) {
	defer func() { observability.RecordOperation("listing", err) }()

	progress := opts.Progress
	if progress == nil {
		progress = func(int, int) {}
	}

	store := r.store
	if opts.From != "" {
		store = cache.Disabled()
	}

	unlock, err := store.Lock(listingKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	items = make(map[string]map[record.Version]record.Record)
	from := opts.From
	var prevStamp time.Time
	if entry, err := store.Get(listingKey); err == nil && entry != nil {
		if cached, err := decodeListing(entry.Payload); err == nil {
			items = cached
			prevStamp = entry.Stamp
			// the datestamp granularity is a day, so re-harvest the
			// stamp's day and let the merge drop the overlap
			from = entry.Stamp.Format("2006-01-02")
			observability.CacheHits.WithLabelValues("listing").Inc()
		} else {
			logging.Warnf("Discarding undecodable listing cache: %v", err)
			observability.CacheMisses.WithLabelValues("listing").Inc()
		}
	} else {
		observability.CacheMisses.WithLabelValues("listing").Inc()
	}

	headers, err := r.oai.ListIdentifiers(ctx, oai.ListOptions{From: from})
	if err != nil {
		return nil, err
	}
	progress(len(headers), 0)

	harvest, err := r.oai.ListRecords(ctx, oai.ListOptions{From: from})
	if err != nil {
		return nil, err
	}

	for _, dcat := range harvest.Records {
		key := doi.Bare(dcat.DOI)
		for _, dist := range dcat.Distribution {
			var version record.Version
			switch fileName(dist.URL) {
			case "README.md":
				version = record.V1
			case "metadata.json":
				version = record.V0
			default:
				continue
			}
			raw, err := r.download(ctx, dist.URL)
			if err != nil {
				logging.Infof("Fetching model card for %s: %v", key, err)
				continue
			}
			var rec record.Record
			var buildErr error
			if version == record.V1 {
				rec, buildErr = record.BuildV1(dcat, raw, r.validator)
			} else {
				rec, buildErr = record.BuildV0(dcat, raw, r.validator)
			}
			if buildErr != nil {
				logging.Infof("Invalid metadata for %s: %v", key, buildErr)
				continue
			}
			if items[key] == nil {
				items[key] = make(map[record.Version]record.Record)
			}
			items[key][version] = rec
		}
		progress(len(headers), 1)
	}

	stamp := harvest.ResponseDate
	if stamp.IsZero() {
		stamp = prevStamp
	}
	if !stamp.IsZero() {
		payload, err := encodeListing(items)
		if err != nil {
			return nil, err
		}
		if err := store.Put(listingKey, &cache.Entry{Stamp: stamp, Payload: payload}); err != nil {
			logging.Warnf("Writing listing cache: %v", err)
		}
	}
	return items, nil
}

func encodeListing(items map[string]map[record.Version]record.Record) ([]byte, error) {
	out := make(map[string]map[record.Version]*record.Envelope, len(items))
	for key, versions := range items {
		out[key] = make(map[record.Version]*record.Envelope, len(versions))
		for version, rec := range versions {
			env, err := record.Wrap(rec)
			if err != nil {
				return nil, err
			}
			out[key][version] = env
		}
	}
	return json.Marshal(out)
}

func decodeListing(payload []byte) (map[string]map[record.Version]record.Record, error) {
	var raw map[string]map[record.Version]*record.Envelope
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	items := make(map[string]map[record.Version]record.Record, len(raw))
	for key, versions := range raw {
		items[key] = make(map[record.Version]record.Record, len(versions))
		for version, env := range versions {
			rec, err := env.Decode()
			if err != nil {
				return nil, err
			}
			items[key][version] = rec
		}
	}
	return items, nil
}

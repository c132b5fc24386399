package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mittagessen/HTRMoPo/pkg/observability"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
)

// GetModelOptions modify a GetModel call.
type GetModelOptions struct {
	// Path is the destination directory. When empty a directory derived
	// from the model identifier is created under the data dir.
	Path string
	// Progress, when non-nil, is called with the total byte count and the
	// chunk size after every chunk written, and once with (0, 0) before
	// the transfer starts.
	Progress func(total, advance int64)
}

// GetModel downloads all files of a model into a directory and returns its
// path. With the default destination an existing directory is taken as a
// completed earlier download and returned without touching the network.
func (r *Repo) GetModel(ctx context.Context, modelID string, opts GetModelOptions) (dest string, err error) {
	defer func() { observability.RecordOperation("get_model", err) }()

	progress := opts.Progress
	if progress == nil {
		progress = func(int64, int64) {}
	}

	if opts.Path != "" {
		if dest, err = filepath.Abs(opts.Path); err != nil {
			return "", err
		}
		if _, statErr := os.Stat(dest); statErr == nil {
			logging.Warnf("Output path %s already exists", dest)
		}
	} else {
		name := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(modelID)).String()
		dest = filepath.Join(r.cfg.DataDir, name)
		if _, statErr := os.Stat(dest); statErr == nil {
			logging.Infof("Model %s already present at %s", modelID, dest)
			return dest, nil
		}
	}

	logging.Infof("Saving model %s to %s", modelID, dest)
	dcat, err := r.fetchRecord(ctx, modelID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}

	progress(0, 0)
	var total int64
	for _, dist := range dcat.Distribution {
		if dist.Size > 0 {
			total += dist.Size
		}
	}

	for _, dist := range dcat.Distribution {
		name := fileName(dist.URL)
		outputPath := filepath.Join(dest, name)
		if rel, err := filepath.Rel(dest, outputPath); err != nil || rel != name ||
			strings.HasPrefix(rel, "..") {
			logging.Warnf("Found file %s with invalid path", name)
			continue
		}
		logging.Infof("Downloading model file %s to %s", dist.URL, outputPath)
		if err := r.downloadTo(ctx, dist.URL, outputPath, total, progress); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// downloadTo streams a distribution file to disk in 1KiB chunks, reporting
// each chunk through the progress callback.
func (r *Repo) downloadTo(ctx context.Context, fileURL, outputPath string, total int64, progress func(total, advance int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetching %s: status %d", fileURL, resp.StatusCode)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outputPath, err)
	}
	defer f.Close()

	buf := make([]byte, 1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return fmt.Errorf("writing %s: %w", outputPath, err)
			}
			progress(total, int64(n))
			observability.BytesDownloaded.Add(float64(n))
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fmt.Errorf("reading %s: %w", fileURL, readErr)
		}
	}
	return nil
}

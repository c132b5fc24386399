// Package config resolves repository endpoints and local directories.
//
// Endpoints default to the production Zenodo instance and can be pointed at
// the sandbox through environment variables. Cache and data directories
// follow the platform conventions (XDG base directories).
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	// DefaultOAIBaseURL is the production OAI-PMH endpoint.
	DefaultOAIBaseURL = "https://zenodo.org/oai2d"
	// DefaultAPIBaseURL is the production REST API root. Trailing slash
	// included, paths are appended verbatim.
	DefaultAPIBaseURL = "https://zenodo.org/api/"

	// EnvOAIBaseURL overrides the OAI-PMH endpoint (sandbox instances).
	EnvOAIBaseURL = "MODEL_REPO_OAI_URL"
	// EnvAPIBaseURL overrides the REST API root.
	EnvAPIBaseURL = "MODEL_REPO_URL"

	appDirName = "htrmopo"
)

// Config carries the endpoints and directories used by the repository
// accessor and publisher.
type Config struct {
	// OAIBaseURL is the OAI-PMH endpoint used for harvesting.
	OAIBaseURL string
	// APIBaseURL is the REST API root used for record lookup and
	// depositions.
	APIBaseURL string
	// CacheDir holds description and listing cache entries.
	CacheDir string
	// DataDir holds downloaded model directories.
	DataDir string
}

// FromEnv builds a Config from environment variables, falling back to the
// production endpoints and the platform cache/data directories.
func FromEnv() Config {
	return Config{
		OAIBaseURL: getenvDefault(EnvOAIBaseURL, DefaultOAIBaseURL),
		APIBaseURL: getenvDefault(EnvAPIBaseURL, DefaultAPIBaseURL),
		CacheDir:   filepath.Join(xdg.CacheHome, appDirName),
		DataDir:    filepath.Join(xdg.DataHome, appDirName),
	}
}

func getenvDefault(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

// Package vocab holds the controlled vocabularies used by model-card
// metadata: ISO 15924 script codes, ISO 639-3 language codes and the license
// registry. The tables are bundled with the binary and loaded into an
// explicit service object so tests can substitute their own.
package vocab

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed data/iso15924.txt data/iso639-3.txt data/licenses.json
var dataFS embed.FS

// License is one entry of the bundled license registry.
type License struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Tables maps vocabulary codes to human-readable names.
type Tables struct {
	scripts   map[string]string
	languages map[string]string
	licenses  map[string]License
}

// Load parses the bundled vocabulary files. Malformed lines are skipped.
func Load() (*Tables, error) {
	t := &Tables{
		scripts:   make(map[string]string),
		languages: make(map[string]string),
		licenses:  make(map[string]License),
	}

	raw, err := dataFS.ReadFile("data/iso15924.txt")
	if err != nil {
		return nil, fmt.Errorf("reading iso15924 table: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Split(line, ";")
		if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		t.scripts[fields[0]] = fields[2]
	}

	raw, err = dataFS.ReadFile("data/iso639-3.txt")
	if err != nil {
		return nil, fmt.Errorf("reading iso639-3 table: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	for _, line := range lines[1:] {
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			continue
		}
		t.languages[fields[0]] = strings.TrimRight(fields[1], "\r")
	}

	raw, err = dataFS.ReadFile("data/licenses.json")
	if err != nil {
		return nil, fmt.Errorf("reading license registry: %w", err)
	}
	if err := json.Unmarshal(raw, &t.licenses); err != nil {
		return nil, fmt.Errorf("parsing license registry: %w", err)
	}

	return t, nil
}

// ScriptName returns the English name of an ISO 15924 script code.
func (t *Tables) ScriptName(code string) (string, bool) {
	name, ok := t.scripts[code]
	return name, ok
}

// LanguageName returns the reference name of an ISO 639-3 language code.
func (t *Tables) LanguageName(code string) (string, bool) {
	name, ok := t.languages[code]
	return name, ok
}

// LicenseName returns the title of a license registry entry.
func (t *Tables) LicenseName(id string) (string, bool) {
	lic, ok := t.licenses[id]
	if !ok {
		return "", false
	}
	return lic.Title, true
}

// HasScript reports ISO 15924 membership.
func (t *Tables) HasScript(code string) bool {
	_, ok := t.scripts[code]
	return ok
}

// HasLanguage reports ISO 639-3 membership.
func (t *Tables) HasLanguage(code string) bool {
	_, ok := t.languages[code]
	return ok
}

// HasLicense reports license registry membership.
func (t *Tables) HasLicense(id string) bool {
	_, ok := t.licenses[id]
	return ok
}

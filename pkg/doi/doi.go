// Package doi translates between Zenodo DOIs, OAI identifiers and numeric
// Zenodo record ids. All functions are pure string manipulation.
package doi

import (
	"regexp"
	"strings"
)

var zenodoPattern = regexp.MustCompile(`^[0-9.]+/zenodo\.([0-9]+)`)

// ToOAIID constructs a Zenodo OAI identifier from a DOI. The second return
// value is false when the DOI does not match the Zenodo pattern.
func ToOAIID(doi string) (string, bool) {
	m := zenodoPattern.FindStringSubmatch(doi)
	if m == nil {
		return "", false
	}
	return "oai:zenodo.org:" + m[1], true
}

// ToZenodoID extracts the numeric Zenodo record id from a DOI.
func ToZenodoID(doi string) (string, bool) {
	m := zenodoPattern.FindStringSubmatch(doi)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Bare strips a URL scheme and host from a DOI, returning the bare
// registrant/suffix form. Already-bare DOIs pass through unchanged.
func Bare(doi string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(doi, scheme); ok {
			if _, path, found := strings.Cut(rest, "/"); found {
				return path
			}
			return ""
		}
	}
	if rest, ok := strings.CutPrefix(doi, "doi:"); ok {
		return rest
	}
	return doi
}

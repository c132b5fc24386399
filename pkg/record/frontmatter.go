package record

import (
	"errors"
	"regexp"
)

// frontMatterRegex splits a model card into its YAML header and Markdown
// body. Both --- and +++ fence styles are accepted, the header may span any
// number of lines, and content after the closing fence is the body.
var frontMatterRegex = regexp.MustCompile(`(?s)^\s*(?:---|\+\+\+)(.*?)(?:---|\+\+\+)\s*(.+)$`)

// ErrNoFrontMatter is returned when a document has no recognizable
// front-matter fence pair.
var ErrNoFrontMatter = errors.New("document has no YAML front matter")

// SplitFrontMatter separates a model-card document into the raw YAML header
// and the Markdown body.
func SplitFrontMatter(doc string) (header, body string, err error) {
	m := frontMatterRegex.FindStringSubmatch(doc)
	if m == nil {
		return "", "", ErrNoFrontMatter
	}
	return m[1], m[2], nil
}

package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mittagessen/HTRMoPo/pkg/config"
	"github.com/mittagessen/HTRMoPo/pkg/record"
	"github.com/mittagessen/HTRMoPo/pkg/repository"
	"github.com/mittagessen/HTRMoPo/pkg/schema"
	"github.com/mittagessen/HTRMoPo/pkg/vocab"
)

// env bundles everything a command needs to talk to the repository.
type env struct {
	cfg       config.Config
	tables    *vocab.Tables
	validator *schema.Validator
	repo      *repository.Repo
}

func newEnv() (*env, error) {
	cfg := config.FromEnv()
	tables, err := vocab.Load()
	if err != nil {
		return nil, fmt.Errorf("loading vocabularies: %w", err)
	}
	validator, err := schema.NewValidator(tables)
	if err != nil {
		return nil, fmt.Errorf("compiling schemas: %w", err)
	}
	repo, err := repository.New(repository.Options{Config: cfg, Validator: validator})
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, tables: tables, validator: validator, repo: repo}, nil
}

func renderCreators(creators []record.Author) string {
	lines := make([]string, 0, len(creators))
	for _, c := range creators {
		line := c.Name
		if c.ORCID != "" {
			line += fmt.Sprintf(" (%s)", c.ORCID)
		}
		if c.Affiliation != "" {
			line += fmt.Sprintf(" (%s)", c.Affiliation)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func renderMetrics(metrics map[string]float64) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %.2f", k, metrics[k]))
	}
	return strings.Join(lines, "\n")
}

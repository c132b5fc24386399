package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mittagessen/HTRMoPo/pkg/cli"
	"github.com/mittagessen/HTRMoPo/pkg/record"
	"github.com/mittagessen/HTRMoPo/pkg/repository"
	"github.com/mittagessen/HTRMoPo/pkg/vocab"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show MODEL_ID",
		Short: "Retrieve a model description from the repository",
		Long: `Retrieve and display the metadata record of a single model.

Examples:
  # Show the preferred metadata of a model
  htrmopo show 10.5281/zenodo.7547437

  # Force the legacy metadata format
  htrmopo show -V v0 10.5281/zenodo.7547437`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("metadata-version")
			var pin record.Version
			switch version {
			case "v0":
				pin = record.V0
			case "v1":
				pin = record.V1
			case "highest":
			default:
				return fmt.Errorf("invalid metadata version %q", version)
			}

			e, err := newEnv()
			if err != nil {
				return err
			}
			desc, err := e.repo.Describe(context.Background(), args[0], repository.DescribeOptions{Version: pin})
			if err != nil {
				cli.Error(err.Error())
				return err
			}

			switch rec := desc.(type) {
			case *record.V0Record:
				showV0(e.tables, rec)
			case *record.V1Record:
				showV1(e.tables, rec)
			}
			return nil
		},
	}

	cmd.Flags().StringP("metadata-version", "V", "highest", "Version of metadata to fetch if multiple exist in repository (v0, v1, highest)")
	return cmd
}

func showV0(tables *vocab.Tables, rec *record.V0Record) {
	var chars, combining []string
	graphemes := append([]string(nil), rec.Graphemes...)
	sort.Strings(graphemes)
	for _, g := range graphemes {
		printable := true
		for _, r := range g {
			if !cli.IsPrintable(r) {
				printable = false
				break
			}
		}
		if printable {
			chars = append(chars, g)
		} else {
			var repr strings.Builder
			for _, r := range g {
				repr.WriteString(cli.MakePrintable(r))
			}
			combining = append(combining, repr.String())
		}
	}

	cli.Info(rec.Summary)
	cli.PrintFields([][]string{
		{"DOI", rec.DOI},
		{"concept DOI", rec.ConceptDOI},
		{"publication date", rec.PublicationDate.Format("2006-01-02T15:04:05")},
		{"model type", strings.Join(rec.ModelType, "\n")},
		{"script", scriptNames(tables, rec.Script)},
		{"alphabet", strings.Join(chars, " ") + "\n" + strings.Join(combining, ", ")},
		{"keywords", strings.Join(rec.Keywords, "\n")},
		{"metrics", renderMetrics(map[string]float64{"cer": rec.Metrics.CER})},
		{"license", licenseName(tables, rec.License)},
		{"creators", renderCreators(rec.Creators)},
		{"description", rec.Description},
	})
}

func showV1(tables *vocab.Tables, rec *record.V1Record) {
	cli.Info(rec.Summary)
	cli.PrintFields([][]string{
		{"DOI", rec.DOI},
		{"concept DOI", rec.ConceptDOI},
		{"publication date", rec.PublicationDate.Format("2006-01-02T15:04:05")},
		{"model type", strings.Join(rec.ModelType, "\n")},
		{"language", languageNames(tables, rec.Language)},
		{"script", scriptNames(tables, rec.Script)},
		{"keywords", strings.Join(rec.Keywords, "\n")},
		{"datasets", strings.Join(rec.Datasets, "\n")},
		{"metrics", renderMetrics(rec.Metrics)},
		{"base model", strings.Join(rec.BaseModel, "\n")},
		{"software", rec.SoftwareName},
		{"software_hints", strings.Join(rec.SoftwareHints, "\n")},
		{"license", licenseName(tables, rec.License)},
		{"creators", renderCreators(rec.Creators)},
		{"description", rec.Description},
	})
}

func scriptNames(tables *vocab.Tables, codes []string) string {
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		if name, ok := tables.ScriptName(c); ok {
			names = append(names, name)
		} else {
			names = append(names, c)
		}
	}
	return strings.Join(names, "\n")
}

func languageNames(tables *vocab.Tables, codes []string) string {
	names := make([]string, 0, len(codes))
	for _, c := range codes {
		if name, ok := tables.LanguageName(c); ok {
			names = append(names, name)
		} else {
			names = append(names, c)
		}
	}
	return strings.Join(names, "\n")
}

func licenseName(tables *vocab.Tables, id string) string {
	if name, ok := tables.LicenseName(id); ok {
		return name
	}
	return id
}

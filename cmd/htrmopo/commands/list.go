package commands

import (
	"context"
	"sort"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/mittagessen/HTRMoPo/pkg/cli"
	"github.com/mittagessen/HTRMoPo/pkg/record"
	"github.com/mittagessen/HTRMoPo/pkg/repository"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models in the repository",
		Long: `List all models in the repository, grouped under their concept DOI
with versions sorted newest first.

Examples:
  # List everything
  htrmopo list

  # Only records changed since a date
  htrmopo list -F 2024-01-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, _ := cmd.Flags().GetString("from-date")

			e, err := newEnv()
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Retrieving model list"),
				progressbar.OptionClearOnFinish())
			items, err := e.repo.Listing(context.Background(), repository.ListingOptions{
				From: fromDate,
				Progress: func(total, advance int) {
					bar.ChangeMax(total)
					_ = bar.Add(advance)
				},
			})
			_ = bar.Finish()
			if err != nil {
				cli.Error(err.Error())
				return err
			}

			// aggregate versions under their concept DOI
			concepts := make(map[string][]record.Record)
			for _, versions := range items {
				rec := record.PickPreferred(versions)
				if rec == nil {
					continue
				}
				meta := rec.Meta()
				concepts[meta.ConceptDOI] = append(concepts[meta.ConceptDOI], rec)
			}

			conceptDOIs := make([]string, 0, len(concepts))
			for k := range concepts {
				conceptDOIs = append(conceptDOIs, k)
			}
			sort.Strings(conceptDOIs)

			rows := make([][]string, 0, len(conceptDOIs))
			for _, conceptDOI := range conceptDOIs {
				records := concepts[conceptDOI]
				sort.Slice(records, func(i, j int) bool {
					return records[i].Meta().PublicationDate.After(records[j].Meta().PublicationDate)
				})

				tree := treeprint.NewWithRoot(conceptDOI)
				summaries := []string{""}
				modelTypes := []string{""}
				keywords := []string{""}
				for _, rec := range records {
					meta := rec.Meta()
					tree.AddNode(meta.DOI)
					summaries = append(summaries, meta.Summary)
					modelTypes = append(modelTypes, strings.Join(meta.ModelType, "; "))
					keywords = append(keywords, strings.Join(meta.Keywords, "; "))
				}
				rows = append(rows, []string{
					strings.TrimRight(tree.String(), "\n"),
					strings.Join(summaries, "\n"),
					strings.Join(modelTypes, "\n"),
					strings.Join(keywords, "\n"),
				})
			}

			cli.PrintTable([]string{"DOI", "summary", "model type", "keywords"}, rows)
			return nil
		},
	}

	cmd.Flags().StringP("from-date", "F", "", "ISO-8601 date string to filter repository entries by age")
	return cmd
}

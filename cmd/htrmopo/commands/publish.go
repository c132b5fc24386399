package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mittagessen/HTRMoPo/pkg/cli"
	"github.com/mittagessen/HTRMoPo/pkg/publish"
)

// NewPublishCmd creates the publish command
func NewPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish MODEL",
		Short: "Publish a model on the Zenodo model repository",
		Long: `Publish a model, either as a new record or as a new version of an
existing one when a DOI is given.

The model card is a Markdown file with a YAML front matter header holding
the model metadata.

Examples:
  # Publish a new model
  htrmopo publish -i card.md -a TOKEN model_dir/

  # Publish a new version of an existing record
  htrmopo publish -i card.md -a TOKEN -d 10.5281/zenodo.7547437 model_dir/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, _ := cmd.Flags().GetString("metadata")
			doi, _ := cmd.Flags().GetString("doi")
			accessToken, _ := cmd.Flags().GetString("access-token")
			private, _ := cmd.Flags().GetBool("private")

			card, err := os.ReadFile(metadata)
			if err != nil {
				return fmt.Errorf("reading model card: %w", err)
			}

			e, err := newEnv()
			if err != nil {
				return err
			}

			bar := progressbar.DefaultBytes(-1, "Uploading")
			params := publish.Params{
				Model:       args[0],
				ModelCard:   string(card),
				AccessToken: accessToken,
				Private:     private,
				Progress: func(total, advance int64) {
					bar.ChangeMax64(total)
					_ = bar.Add64(advance)
				},
			}

			publisher := publish.New(e.cfg.APIBaseURL, e.validator)
			var pid string
			if doi != "" {
				pid, err = publisher.Update(context.Background(), doi, params)
			} else {
				pid, err = publisher.Publish(context.Background(), params)
			}
			_ = bar.Finish()
			if err != nil {
				cli.Error(err.Error())
				return err
			}
			cli.Success(fmt.Sprintf("model PID: %s", pid))
			return nil
		},
	}

	cmd.Flags().StringP("metadata", "i", "", "Model card file for the model")
	cmd.Flags().StringP("doi", "d", "", "DOI of an existing model. If set the record will be updated by creating a new version")
	cmd.Flags().StringP("access-token", "a", "", "Zenodo access token")
	cmd.Flags().BoolP("private", "p", false, "Disables the Zenodo community inclusion request; the model will not show up in list output")
	_ = cmd.MarkFlagRequired("metadata")
	_ = cmd.MarkFlagRequired("access-token")
	return cmd
}

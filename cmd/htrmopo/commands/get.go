package commands

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mittagessen/HTRMoPo/pkg/cli"
	"github.com/mittagessen/HTRMoPo/pkg/repository"
)

// NewGetCmd creates the get command
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get MODEL_ID",
		Short: "Retrieve a model from the repository",
		Long: `Download all files of a model.

Without an output directory the model is placed in a content-addressed
directory under the user data dir and reused on subsequent calls.

Examples:
  # Download to the data dir
  htrmopo get 10.5281/zenodo.7547437

  # Download to an explicit directory
  htrmopo get -o ./urdu-model 10.5281/zenodo.7547437`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			e, err := newEnv()
			if err != nil {
				return err
			}

			bar := progressbar.DefaultBytes(-1, "Processing")
			path, err := e.repo.GetModel(context.Background(), args[0], repository.GetModelOptions{
				Path: output,
				Progress: func(total, advance int64) {
					bar.ChangeMax64(total)
					_ = bar.Add64(advance)
				},
			})
			_ = bar.Finish()
			if err != nil {
				cli.Error(err.Error())
				return err
			}
			cli.Success(fmt.Sprintf("Model name: %s", path))
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output directory for the model")
	return cmd
}

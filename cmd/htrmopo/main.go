package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mittagessen/HTRMoPo/cmd/htrmopo/commands"
	"github.com/mittagessen/HTRMoPo/pkg/observability/logging"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	// a .env file can override the repository endpoints, mostly useful
	// against the Zenodo sandbox
	_ = godotenv.Load()

	if _, err := logging.InitLoggerFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "htrmopo",
		Short: "Client for the HTR model repository on Zenodo",
		Long: `htrmopo is a command-line client for the handwritten text recognition
model repository hosted on Zenodo.

Common workflows:
  htrmopo list                           # List all models in the repository
  htrmopo show 10.5281/zenodo.7547437    # Show the metadata of one model
  htrmopo get 10.5281/zenodo.7547437     # Download a model
  htrmopo publish -i card.md -a TOKEN model/   # Publish a new model

For detailed help on any command, use:
  htrmopo <command> --help`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewShowCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewGetCmd())
	rootCmd.AddCommand(commands.NewPublishCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

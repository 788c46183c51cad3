package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sportello-bot/sportello/internal/interfaces/cli"
	"github.com/sportello-bot/sportello/internal/interfaces/cli/server"
	"github.com/sportello-bot/sportello/internal/interfaces/cli/sweep"
	"github.com/sportello-bot/sportello/internal/interfaces/cli/unlock"
	"github.com/sportello-bot/sportello/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "sportello",
		Short:        "Sportello - Discord ticket bot",
		Long:         `Sportello runs the support ticket panel of a single Discord guild: private ticket channels, closing with HTML transcripts, and the welcome flow for new members.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringP(cli.ConfigFlag, "c", "", "config file (default ./configs/config.yaml)")

	rootCmd.AddCommand(
		server.NewCommand(),
		sweep.NewCommand(),
		unlock.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

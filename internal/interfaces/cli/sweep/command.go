package sweep

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sportello-bot/sportello/internal/infrastructure/transcript"
	"github.com/sportello-bot/sportello/internal/interfaces/cli"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired transcripts once and exit",
		Long:  `Run the transcript retention sweep a single time. Safe to run while the bot is serving; both take the same index lock.`,
		Args:  cobra.NoArgs,
		RunE:  run,
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	rt, err := cli.Bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	store, err := transcript.NewFileStore(rt.Config.Storage.TranscriptsDir(), rt.Config.Transcript.Retention, rt.Locks, rt.Logger.Named("transcript"))
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}

	removed, err := store.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("transcript sweep failed: %w", err)
	}

	rt.Logger.Infow("transcript sweep completed", "removed", removed)
	cmd.Printf("removed %d expired transcript(s)\n", removed)
	return nil
}

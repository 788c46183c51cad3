package unlock

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sportello-bot/sportello/internal/infrastructure/lock"
	"github.com/sportello-bot/sportello/internal/interfaces/cli"
)

func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <key>",
		Short: "Remove a stuck lock",
		Long: `Remove a lock regardless of its holder, e.g. "close:123456789" or "open:<guild>:<user>".
The key is looked up in the active lock store: Redis when configured and reachable, lock files otherwise.
A stale instance lock is named "instance-<client id>".`,
		Example: "  sportello unlock close:1187654321098765432",
		Args:    cobra.ExactArgs(1),
		RunE:    run,
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]

	rt, err := cli.Bootstrap(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	breaker, ok := rt.Locks.(lock.Breaker)
	if !ok {
		return fmt.Errorf("lock store %s does not support manual unlock", rt.Locks.Name())
	}

	broken, err := breaker.Break(ctx, key)
	if err != nil {
		return err
	}
	if !broken {
		cmd.Printf("no %s lock held for %q\n", rt.Locks.Name(), key)
		return nil
	}
	cmd.Printf("released %s lock %q\n", rt.Locks.Name(), key)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Reclaim expired memories now",
	Long:  `Run one maintenance pass: reclaim lazily expired memories and, when configured, prune version ledgers.`,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	reclaimed, err := e.repo.SweepExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Reclaimed %d expired memories\n", reclaimed)

	if keep := e.cfg.Versions.MaxPerMemory; keep > 0 {
		pruned, err := e.repo.PruneAllVersions(ctx, keep)
		if err != nil {
			return err
		}
		fmt.Printf("Pruned %d version snapshots\n", pruned)
	}
	return nil
}

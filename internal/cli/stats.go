package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory corpus statistics",
	Long:  `Show aggregate counts for the in-scope memory corpus.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	stats, err := e.repo.Stats(ctx)
	if err != nil {
		return err
	}

	if statsJSON {
		return printJSON(stats)
	}

	fmt.Printf("Workspace: %s (%s mode)\n", e.repo.WorkspaceID(), e.cfg.Workspace.Mode)
	fmt.Printf("Total memories: %d\n", stats.TotalMemories)
	fmt.Printf("  workspace: %d\n", stats.WorkspaceMemories)
	fmt.Printf("  global:    %d\n", stats.GlobalMemories)
	if len(stats.ByContextType) > 0 {
		fmt.Println("By context type:")
		for ct, n := range stats.ByContextType {
			fmt.Printf("  %-14s %d\n", ct, n)
		}
	}
	fmt.Printf("Sessions: %d\n", stats.Sessions)
	if stats.OldestTimestamp != nil {
		fmt.Printf("Oldest: %s\n", stats.OldestTimestamp.Format("2006-01-02 15:04:05"))
	}
	if stats.NewestTimestamp != nil {
		fmt.Printf("Newest: %s\n", stats.NewestTimestamp.Format("2006-01-02 15:04:05"))
	}
	return nil
}

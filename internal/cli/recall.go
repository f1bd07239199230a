package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramdev/engram/pkg/memory"
)

var (
	recallLimit int
	recallType  string
	recallTags  []string
	recallJSON  bool
)

var recallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search memories semantically",
	Long:  `Rank the in-scope memories by semantic similarity against a query.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRecall,
}

func init() {
	recallCmd.Flags().IntVar(&recallLimit, "limit", 10, "maximum results")
	recallCmd.Flags().StringVar(&recallType, "type", "", "filter by context type")
	recallCmd.Flags().StringSliceVar(&recallTags, "tag", nil, "filter by tag (repeatable)")
	recallCmd.Flags().BoolVar(&recallJSON, "json", false, "output JSON")
	rootCmd.AddCommand(recallCmd)
}

func runRecall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	results, err := e.repo.Search(ctx, memory.SearchQuery{
		Text:        strings.Join(args, " "),
		Limit:       recallLimit,
		ContextType: memory.ContextType(recallType),
		Tags:        recallTags,
	})
	if err != nil {
		return err
	}

	if recallJSON {
		return printJSON(results)
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return nil
	}
	for _, res := range results {
		line := res.Memory.Content
		if res.Memory.Summary != "" {
			line = res.Memory.Summary
		}
		fmt.Printf("%.3f  [%s]  %s  %s\n", res.Similarity, res.Memory.ContextType, res.Memory.ID, line)
	}
	return nil
}

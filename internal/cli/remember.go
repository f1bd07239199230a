package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramdev/engram/pkg/memory"
)

var (
	rememberType       string
	rememberSummary    string
	rememberTags       []string
	rememberImportance int
	rememberTTL        int64
	rememberGlobal     bool
	rememberCategory   string
)

var rememberCmd = &cobra.Command{
	Use:   "remember <content>",
	Short: "Store a new memory",
	Long:  `Store a new memory entry in the current workspace (or globally with --global).`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemember,
}

func init() {
	rememberCmd.Flags().StringVar(&rememberType, "type", "information", "context type")
	rememberCmd.Flags().StringVar(&rememberSummary, "summary", "", "short summary")
	rememberCmd.Flags().StringSliceVar(&rememberTags, "tag", nil, "tag (repeatable)")
	rememberCmd.Flags().IntVar(&rememberImportance, "importance", 5, "importance 1-10")
	rememberCmd.Flags().Int64Var(&rememberTTL, "ttl", 0, "time to live in seconds (0 = permanent)")
	rememberCmd.Flags().BoolVar(&rememberGlobal, "global", false, "store in the global namespace")
	rememberCmd.Flags().StringVar(&rememberCategory, "category", "", "category")
	rootCmd.AddCommand(rememberCmd)
}

func runRemember(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	entry, err := e.repo.Create(ctx, memory.CreateInput{
		Content:     strings.Join(args, " "),
		ContextType: memory.ContextType(rememberType),
		Summary:     rememberSummary,
		Tags:        rememberTags,
		Importance:  rememberImportance,
		TTLSeconds:  rememberTTL,
		IsGlobal:    rememberGlobal,
		Category:    rememberCategory,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Stored %s\n", entry.ID)
	return nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

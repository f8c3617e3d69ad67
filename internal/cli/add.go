package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mtegner/mnemo/pkg/memory"
)

var (
	addFilePath    string
	addLineNumber  int
	addCodeSnippet string
)

var addCmd = &cobra.Command{
	Use:   "add <content>...",
	Short: "Store a new note",
	Long: `Store a new note for the given user. A URL in the content is fetched
and its page text appended as enrichment context; task keywords flag the
note as actionable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addFilePath, "file", "", "source file the note refers to")
	addCmd.Flags().IntVar(&addLineNumber, "line", 0, "line in the source file")
	addCmd.Flags().StringVar(&addCodeSnippet, "snippet", "", "code excerpt embedded alongside the note")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.svc.Add(cmd.Context(), userID, memory.AddRequest{
		Content:     strings.Join(args, " "),
		FilePath:    addFilePath,
		LineNumber:  addLineNumber,
		CodeSnippet: addCodeSnippet,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Added note %s", n.ID)
	if n.IsTask {
		fmt.Print(" (task)")
	}
	fmt.Println()
	return nil
}

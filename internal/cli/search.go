package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Search notes by semantic similarity",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	hits, err := a.svc.Search(cmd.Context(), userID, strings.Join(args, " "), searchTopK)
	if err != nil {
		return err
	}

	if len(hits) == 0 {
		fmt.Println("No matches.")
		return nil
	}

	for i, h := range hits {
		fmt.Printf("%d. %s (distance %.4f)\n   %s\n", i+1, h.NoteID, h.Distance, firstLine(h.Text))
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <id> <content>...",
	Short: "Replace a note's content",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runUpdate,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(updateCmd, deleteCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.svc.Update(cmd.Context(), userID, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("Note %s not found.\n", args[0])
		return nil
	}

	fmt.Printf("Updated note %s\n", args[0])
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	found, err := a.svc.Delete(cmd.Context(), userID, args[0])
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("Note %s not found.\n", args[0])
		return nil
	}

	fmt.Printf("Deleted note %s\n", args[0])
	return nil
}

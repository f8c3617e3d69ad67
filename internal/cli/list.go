package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mtegner/mnemo/pkg/note"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes, newest first",
	RunE:  runList,
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List task-flagged notes",
	RunE:  runTasks,
}

var reportHours int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List notes created within the trailing window",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportHours, "hours", 24, "window size in hours")
	rootCmd.AddCommand(listCmd, tasksCmd, reportCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	notes, err := a.svc.ListAll(cmd.Context(), userID)
	if err != nil {
		return err
	}

	printNotes(notes, "No notes found.")
	return nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	notes, err := a.svc.ListTasks(cmd.Context(), userID)
	if err != nil {
		return err
	}

	printNotes(notes, "No open tasks.")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	notes, err := a.svc.ReportSince(cmd.Context(), userID, time.Duration(reportHours)*time.Hour)
	if err != nil {
		return err
	}

	printNotes(notes, fmt.Sprintf("No notes in the last %d hours.", reportHours))
	return nil
}

func printNotes(notes []note.Note, emptyMsg string) {
	if len(notes) == 0 {
		fmt.Println(emptyMsg)
		return
	}

	for _, n := range notes {
		marker := " "
		if n.IsTask {
			marker = "!"
		}
		category := n.Category
		if category == "" {
			category = "-"
		}
		fmt.Printf("%s %s  %s  [%s]  %s\n",
			marker, n.ID, n.CreatedAt.Format("2006-01-02 15:04"), category, firstLine(n.Content))
	}
}

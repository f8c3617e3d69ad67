package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mtegner/mnemo/pkg/memory"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Ingest a directory tree as note chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Cluster notes into labeled topical categories",
	RunE:  runOrganize,
}

var sweepRepair bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Check record/index consistency",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepRepair, "repair", false, "repair drift instead of only reporting it")
	rootCmd.AddCommand(ingestCmd, organizeCmd, sweepCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	count, err := a.svc.IngestDirectory(cmd.Context(), userID, args[0])
	if err != nil {
		return fmt.Errorf("ingestion failed after %d chunks: %w", count, err)
	}

	fmt.Printf("Ingested %d chunks from %s\n", count, args[0])
	return nil
}

func runOrganize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.svc.Organize(cmd.Context(), userID)
	if errors.Is(err, memory.ErrInsufficientData) {
		fmt.Println("Not enough embedded notes to organize (need at least 3).")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Organized %d notes into %d clusters:\n", summary.Notes, len(summary.Clusters))
	for _, c := range summary.Clusters {
		fmt.Printf("  %-30s %d notes\n", c.Label, c.Count)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.SweepConsistency(cmd.Context(), userID, sweepRepair)
	if err != nil {
		return err
	}

	if report.Clean() {
		fmt.Println("Record store and index are consistent.")
		return nil
	}

	fmt.Printf("Missing index entries: %d\n", len(report.Missing))
	for _, id := range report.Missing {
		fmt.Printf("  %s\n", id)
	}
	fmt.Printf("Orphaned index entries: %d\n", len(report.Orphaned))
	for _, id := range report.Orphaned {
		fmt.Printf("  %s\n", id)
	}
	if report.Repaired {
		fmt.Println("Drift repaired.")
	}
	return nil
}

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"oss-manager/core/reconcile"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	catalogLimit    int
	reconcilePrefix string
	reconcileForget bool
	reconcileRecord bool
	reconcileResize bool
	reconcileYes    bool
	reconcileJSON   bool
	driftPrefix     string
	driftPath       string
)

// catalogCmd is the parent command for the object catalog.
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and reconcile the object catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list <bucket>",
	Short: "List catalogued objects, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(true)
		if err != nil {
			return err
		}
		entries, enabled, err := s.service.Catalog(cmd.Context(), args[0], catalogLimit)
		if err != nil {
			return err
		}
		if !enabled {
			return errors.New("catalog is disabled (DATABASE_ENABLED=false or unreachable)")
		}
		for _, e := range entries {
			fmt.Printf("%-40s %10s  %-24s %-10s %s\n",
				e.Path, humanize.Bytes(uint64(max(e.Size, 0))), e.ContentType, e.Source, humanize.Time(e.CreatedAt))
		}
		return nil
	},
}

var catalogDriftCmd = &cobra.Command{
	Use:   "drift <bucket>",
	Short: "Show paths where the catalog and the bucket disagree",
	Long: `Lists catalog entries whose object is gone, objects that were never
catalogued and size mismatches. Nothing is changed.

Examples:
  catalog drift media --prefix reports/
  catalog drift media --path reports/q1.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := args[0]
		s, err := openSession(true)
		if err != nil {
			return err
		}

		var drift []reconcile.Result
		if driftPath != "" {
			result, err := s.service.ReconcilePath(cmd.Context(), bucket, driftPath)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
			drift = append(drift, *result)
		} else {
			drift, err = s.service.Drift(cmd.Context(), bucket, driftPrefix)
			if err != nil {
				return fmt.Errorf("reconcile failed: %w", err)
			}
		}

		for _, r := range drift {
			fmt.Printf("%-40s catalog=%-5t storage=%-5t %s\n",
				r.Path, r.CatalogPresent, r.StoragePresent, strings.Join(r.Mismatch, "; "))
		}
		fmt.Printf("%d drifted path(s)\n", len(drift))
		return nil
	},
}

var catalogReconcileCmd = &cobra.Command{
	Use:   "reconcile <bucket>",
	Short: "Compare the catalog with the bucket (report + optionally correct)",
	Long: `Compares catalog entries with the objects stored in the bucket.

Reports entries whose object is gone, objects that were never catalogued and
size mismatches. Optionally corrects the catalog; storage is never modified.

Examples:
  # Report only
  catalog reconcile media

  # Drop entries whose object is gone and adopt stray objects
  catalog reconcile media --forget --record --yes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket := args[0]
		startTime := time.Now()

		s, err := openSession(true)
		if err != nil {
			return err
		}

		opts := reconcile.Options{
			DoForget: reconcileForget,
			DoRecord: reconcileRecord,
			DoResize: reconcileResize,
		}

		// Plan first so the user sees what would change before confirming.
		plan, _, err := s.service.Reconcile(cmd.Context(), bucket, reconcilePrefix, opts)
		if err != nil {
			return fmt.Errorf("reconcile failed: %w", err)
		}

		fmt.Println("\n=== Catalog Reconcile ===")
		fmt.Printf("Total Items:     %d\n", plan.Summary.TotalItems)
		fmt.Printf("Missing Storage: %d\n", plan.Summary.MissingStorage)
		fmt.Printf("Missing Catalog: %d\n", plan.Summary.MissingCatalog)
		fmt.Printf("Mismatches:      %d\n", plan.Summary.Mismatches)
		fmt.Printf("Planned Actions: %d\n", len(plan.Actions))

		if reconcileJSON {
			filename := fmt.Sprintf("reconcile_%s_%d.json", bucket, time.Now().Unix())
			data, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			if err := os.WriteFile(filename, data, 0644); err != nil {
				return fmt.Errorf("failed to save JSON file: %w", err)
			}
			fmt.Printf("Detailed JSON saved to: %s\n", filename)
		}

		if len(plan.Actions) > 0 {
			if !confirm(fmt.Sprintf("\nApply %d catalog changes?", len(plan.Actions)), reconcileYes) {
				fmt.Println("Aborted, no changes applied")
				return nil
			}
			opts.Confirmed = true
			_, executed, err := s.service.Reconcile(cmd.Context(), bucket, reconcilePrefix, opts)
			if err != nil {
				return fmt.Errorf("apply failed after %d actions: %w", executed, err)
			}
			fmt.Printf("Applied:         %d\n", executed)
		}

		fmt.Printf("Execution Time:  %s\n", time.Since(startTime))
		s.logger.Debug("Catalog reconcile finished", zap.String("bucket", bucket), zap.Duration("execution_time", time.Since(startTime)))
		return nil
	},
}

func init() {
	catalogListCmd.Flags().IntVar(&catalogLimit, "limit", 100, "Maximum entries to list")

	catalogDriftCmd.Flags().StringVar(&driftPrefix, "prefix", "", "Only compare paths starting with this prefix")
	catalogDriftCmd.Flags().StringVar(&driftPath, "path", "", "Compare a single object path")

	f := catalogReconcileCmd.Flags()
	f.StringVar(&reconcilePrefix, "prefix", "", "Only reconcile paths starting with this prefix")
	f.BoolVar(&reconcileForget, "forget", false, "Drop entries whose object is gone")
	f.BoolVar(&reconcileRecord, "record", false, "Catalogue objects missing from the catalog")
	f.BoolVar(&reconcileResize, "resize", false, "Correct recorded sizes from storage")
	f.BoolVar(&reconcileYes, "yes", false, "Auto-confirm catalog changes (non-interactive)")
	f.BoolVar(&reconcileJSON, "json", false, "Save the detailed plan as JSON")

	catalogCmd.AddCommand(catalogListCmd, catalogDriftCmd, catalogReconcileCmd)
	RootCmd.AddCommand(catalogCmd)
}

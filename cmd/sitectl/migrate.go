package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yanizio/chefsite/internal/localstore"
	"github.com/yanizio/chefsite/internal/migrate"
	"github.com/yanizio/chefsite/internal/settings"
)

var (
	// Migrate flags
	exportFile string
	dryRun     bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Move legacy data into the database",
}

var migrateLocalCmd = &cobra.Command{
	Use:   "local",
	Short: "Replay a localStorage export",
	Long: `Replay every collection of a localStorage export into the database.
Records already migrated are skipped, so the command can be re-run.

Examples:
  sitectl migrate local --file export.json
  sitectl migrate local --file export.json --dry-run --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		snap, err := localstore.Load(exportFile)
		if err != nil {
			return err
		}
		if len(snap.Keys()) == 0 {
			return fmt.Errorf("%s: export is empty or missing", exportFile)
		}

		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		p, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer p.Close()

		st := settings.NewStore(settings.NewSQLBackend(p), 0)
		rep := migrate.New(p, st).Run(ctx, snap, migrate.Options{DryRun: dryRun})

		if err := printReport(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.OK() {
			return errors.New("migration finished with failures")
		}
		return nil
	},
}

func printReport(w io.Writer, rep migrate.Report) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tOK\tCOUNT\tCREATED\tUPDATED\tSKIPPED\tFAILED\tERROR")
	for _, r := range rep.Results {
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Collection, r.Success, r.Count, r.Created, r.Updated, r.Skipped, r.Failed, r.Err)
	}
	if rep.DryRun {
		fmt.Fprintln(tw, "(dry run: nothing written)")
	}
	return tw.Flush()
}

func init() {
	migrateLocalCmd.Flags().StringVarP(&exportFile, "file", "f", "", "localStorage export (JSON)")
	migrateLocalCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and count without writing")
	_ = migrateLocalCmd.MarkFlagRequired("file")

	migrateCmd.AddCommand(migrateLocalCmd)
	rootCmd.AddCommand(migrateCmd)
}

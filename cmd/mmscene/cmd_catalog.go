package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mmscene/internal/catalog"
	"github.com/banshee-data/mmscene/internal/pipeline"
)

var catalogFlags struct {
	db     string
	limit  int
	asJSON bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the preprocessing run catalog",
}

var catalogMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the catalog schema",
	RunE:  runCatalogMigrate,
}

var catalogRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded preprocessing runs, newest first",
	RunE:  runCatalogRuns,
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogFlags.db, "db", "", "SQLite catalog path (required)")
	_ = catalogCmd.MarkPersistentFlagRequired("db")

	f := catalogRunsCmd.Flags()
	f.IntVar(&catalogFlags.limit, "limit", 20, "Maximum runs to list; 0 lists all")
	f.BoolVar(&catalogFlags.asJSON, "json", false, "Print runs with their stages as JSON")

	catalogCmd.AddCommand(catalogMigrateCmd)
	catalogCmd.AddCommand(catalogRunsCmd)
}

func runCatalogMigrate(cmd *cobra.Command, _ []string) error {
	cat, err := openCatalog(catalogFlags.db)
	if err != nil {
		return err
	}
	defer cat.Close()
	version, dirty, err := cat.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Catalog %s at schema version %d (dirty=%t)\n", catalogFlags.db, version, dirty)
	return nil
}

type runJSON struct {
	Run    catalog.Run            `json:"run"`
	Stages []pipeline.StageRecord `json:"stages"`
}

func runCatalogRuns(cmd *cobra.Command, _ []string) error {
	cat, err := openCatalog(catalogFlags.db)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := cmd.Context()
	runs, err := cat.ListRuns(ctx, catalogFlags.limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if catalogFlags.asJSON {
		docs := make([]runJSON, 0, len(runs))
		for _, r := range runs {
			stages, err := cat.StagesForRun(ctx, r.ID)
			if err != nil {
				return err
			}
			docs = append(docs, runJSON{Run: r, Stages: stages})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTEST AREA\tSTATUS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.StartedAt.Local().Format(time.DateTime), r.TestArea, r.Status, r.Error)
	}
	return tw.Flush()
}

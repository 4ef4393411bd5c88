package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"goinsight/adapters/postgres"
	"goinsight/domain/insight"
	"goinsight/internal/api"
	"goinsight/internal/errors"
	"goinsight/internal/migration"
	"goinsight/ui"
)

func newRunCmd() *cobra.Command {
	var in inputOptions
	var entities, subsets []string
	var format, output string

	cmd := &cobra.Command{
		Use:   "run <metric>",
		Short: "Produce the narrative for one metric",
		Long: `Evaluate one metric under a filter set and print the narrative.

Example: insight run transit_routes --data regions.csv --entity F
         insight run transit_routes --data regions.xlsx --filter area_type=urban --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := in.load()
			if err != nil {
				return err
			}
			cfg, ok := s.catalog.Metric(args[0])
			if !ok {
				return fmt.Errorf("metric %q is not in the catalog", args[0])
			}
			filters, err := parseFilters(entities, subsets)
			if err != nil {
				return err
			}
			ds, err := in.dataset(cmd.Context(), s)
			if err != nil {
				return err
			}

			result := s.engine.Run(ds, cfg, filters)
			return writeOutput(cmd.OutOrStdout(), output, format, result)
		},
	}

	in.bind(cmd)
	cmd.Flags().StringSliceVarP(&entities, "entity", "e", nil, "restrict to these groups (repeatable)")
	cmd.Flags().StringArrayVarP(&subsets, "filter", "f", nil, "subset filter key=value[,value] (repeatable)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json, markdown, html or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var in inputOptions
	var entities, subsets []string
	var format, output string

	cmd := &cobra.Command{
		Use:   "batch [metric...]",
		Short: "Produce narratives for several metrics concurrently",
		Long: `Evaluate several metrics (all catalog metrics when none are named)
under the same filter set.

Example: insight batch --data regions.csv --entity F --format markdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := in.load()
			if err != nil {
				return err
			}
			var cfgs []insight.MetricConfig
			if len(args) == 0 {
				cfgs = s.catalog.Metrics
			}
			for _, id := range args {
				cfg, ok := s.catalog.Metric(id)
				if !ok {
					return fmt.Errorf("metric %q is not in the catalog", id)
				}
				cfgs = append(cfgs, cfg)
			}
			filters, err := parseFilters(entities, subsets)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), s.config.Batch.Timeout)
			defer cancel()
			ds, err := in.dataset(ctx, s)
			if err != nil {
				return err
			}
			results, err := s.engine.RunAll(ctx, ds, cfgs, filters)
			if err != nil {
				return err
			}
			return writeBatch(cmd.OutOrStdout(), output, format, results)
		},
	}

	in.bind(cmd)
	cmd.Flags().StringSliceVarP(&entities, "entity", "e", nil, "restrict to these groups (repeatable)")
	cmd.Flags().StringArrayVarP(&subsets, "filter", "f", nil, "subset filter key=value[,value] (repeatable)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	var in inputOptions

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Validate the metric catalog and list its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := in.load()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, m := range s.catalog.Metrics {
				fmt.Fprintf(w, "%-24s %-32s %d rules\n", m.ID, m.Name, len(m.Rules))
			}
			a := s.engine.Appraisal()
			fmt.Fprintf(w, "\nappraisal: %.1f%% over %d years\n", a.DiscountRate*100, a.HorizonYears)
			return nil
		},
	}
	in.bind(cmd)
	return cmd
}

func newServeCmd() *cobra.Command {
	var in inputOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTML reports and the JSON API",
		Long: `Load the dataset once and serve browsable reports under /reports and the
JSON API under /api.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := in.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ds, err := in.dataset(ctx, s)
			if err != nil {
				return err
			}
			log.Printf("[Serve] Loaded %d rows, %d metrics", len(ds.Rows), len(s.catalog.Metrics))

			source := api.Static(ds)
			handler := api.NewHandler(s.engine, s.catalog, source, s.config.Batch.Timeout)
			app, err := ui.NewApp(ui.Config{
				Port:         s.config.Server.Port,
				ReadTimeout:  s.config.Server.ReadTimeout,
				WriteTimeout: s.config.Server.WriteTimeout,
			}, s.engine, s.catalog, source, handler.Router())
			if err != nil {
				return err
			}
			return app.Start(ctx)
		},
	}
	in.bind(cmd)
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the dataset staging tables in DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in inputOptions
			s, err := in.load()
			if err != nil {
				return err
			}
			db, err := s.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			runner := migration.NewRunner()
			if err := runner.Run(cmd.Context(), db); err != nil {
				return err
			}
			log.Printf("[Migrate] Schema at version %s", runner.Version())
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var in inputOptions

	cmd := &cobra.Command{
		Use:   "import <name>",
		Short: "Stage a dataset file in DATABASE_URL",
		Long: `Read a dataset from --data (or --api-url) and store it under name, replacing
any earlier import with the same name. Later commands read it with --dataset.

Example: insight import transit --data regions.xlsx --sheet 2024`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.stored != "" || in.query != "" {
				return errors.InvalidInput("import reads from --data or --api-url")
			}
			s, err := in.load()
			if err != nil {
				return err
			}
			ds, err := in.dataset(cmd.Context(), s)
			if err != nil {
				return err
			}
			db, err := s.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.NewObservationRepository(db).Import(cmd.Context(), args[0], ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows as %s\n", len(ds.Rows), args[0])
			return nil
		},
	}
	in.bind(cmd)
	return cmd
}

func newDatasetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List datasets staged in DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in inputOptions
			s, err := in.load()
			if err != nil {
				return err
			}
			db, err := s.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := postgres.NewObservationRepository(db).List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, d := range stored {
				fmt.Fprintf(w, "%-24s %8d rows  %s\n", d.Name, d.RowCount, d.LoadedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

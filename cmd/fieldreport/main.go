package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cocoa-insights-go/internal/adoption"
	"cocoa-insights-go/internal/config"
	"cocoa-insights-go/internal/development"
	"cocoa-insights-go/internal/geo"
	"cocoa-insights-go/internal/livingincome"
	"cocoa-insights-go/internal/logger"
	"cocoa-insights-go/internal/pipeline"
	"cocoa-insights-go/internal/quota"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(logger.New()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// exercise binds a subcommand to one analysis
type exercise struct {
	name  string
	short string
	input func(*config.Config) *string
	run   func(ctx context.Context, cfg *config.Config, log *logger.Logger) error
}

var exercises = []exercise{
	{
		name:  adoption.Exercise,
		short: "Score cocoa practice adoption (Ecuador survey)",
		input: func(c *config.Config) *string { return &c.AdoptionInput },
		run: func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			_, err := adoption.Run(ctx, cfg, log)
			return err
		},
	},
	{
		name:  development.Exercise,
		short: "Baseline and visit progress of the farmer development plan",
		input: func(c *config.Config) *string { return &c.DevelopmentInput },
		run: func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			_, err := development.Run(ctx, cfg, log)
			return err
		},
	},
	{
		name:  livingincome.Exercise,
		short: "Living income gap dashboard (demo data when no survey is found)",
		input: func(c *config.Config) *string { return &c.IncomeInput },
		run: func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			_, err := livingincome.Run(ctx, cfg, log)
			return err
		},
	},
	{
		name:  geo.Exercise,
		short: "Farm polygon areas, overlaps, cleaning and forest intersection",
		input: func(c *config.Config) *string { return &c.PolygonInput },
		run: func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			_, err := geo.Run(ctx, cfg, log)
			return err
		},
	},
	{
		name:  quota.Exercise,
		short: "Delivered volume against farmer quota",
		input: func(c *config.Config) *string { return &c.QuotaInput },
		run: func(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
			_, err := quota.Run(ctx, cfg, log)
			return err
		},
	},
}

type flags struct {
	dataDir, resultsDir, cleanedDir string
	workers, dpi                    int
	threshold                       float64
	forest                          string
}

func newRootCmd(log *logger.Logger) *cobra.Command {
	var (
		f   flags
		cfg *config.Config
	)
	root := &cobra.Command{
		Use:           "fieldreport",
		Short:         "Cocoa field data analyses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			applyFlags(cmd, c, f)
			if err := c.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			cfg = c
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.dataDir, "data-dir", "", "input root, <data-dir>/<exercise>/raw (env DATA_DIR)")
	pf.StringVar(&f.resultsDir, "results-dir", "", "output root (env RESULTS_DIR)")
	pf.StringVar(&f.cleanedDir, "cleaned-dir", "", "cleaned data root (env CLEANED_DIR)")
	pf.IntVar(&f.workers, "workers", 0, "exercises run at once by 'all' (env WORKERS)")
	pf.IntVar(&f.dpi, "dpi", 0, "chart resolution (env CHART_DPI)")
	pf.Float64Var(&f.threshold, "overlap-threshold", 0, "overlap % at which a polygon is removed (env OVERLAP_CLEAN_THRESHOLD)")
	pf.StringVar(&f.forest, "forest", "", "forest GeoJSON path or URL (env FOREST_LAYER)")

	for _, ex := range exercises {
		var input string
		cmd := &cobra.Command{
			Use:   ex.name,
			Short: ex.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if input != "" {
					*ex.input(cfg) = input
				}
				runLog := log.WithRun(uuid.NewString(), ex.name)
				if err := ex.run(cmd.Context(), cfg, runLog); err != nil {
					runLog.WithError(err).Error("exercise failed")
					return err
				}
				return nil
			},
		}
		cmd.Flags().StringVarP(&input, "input", "i", "", "input spreadsheet (default: first file in the raw dir)")
		root.AddCommand(cmd)
	}

	root.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Run every exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := uuid.NewString()
			jobs := make([]pipeline.Job, len(exercises))
			for i, ex := range exercises {
				jobs[i] = pipeline.Job{
					Name: ex.name,
					Run: func(ctx context.Context) error {
						return ex.run(ctx, cfg, log.WithRun(runID, ex.name))
					},
				}
			}
			log.WithField("run_id", runID).WithField("workers", cfg.Workers).Info("running all exercises")
			return pipeline.RunAll(cmd.Context(), log, cfg.Workers, jobs)
		},
	})
	return root
}

// applyFlags overrides environment settings with flags given explicitly
func applyFlags(cmd *cobra.Command, c *config.Config, f flags) {
	pf := cmd.Flags()
	if pf.Changed("data-dir") {
		c.DataDir = f.dataDir
	}
	if pf.Changed("results-dir") {
		c.ResultsDir = f.resultsDir
	}
	if pf.Changed("cleaned-dir") {
		c.CleanedDir = f.cleanedDir
	}
	if pf.Changed("workers") {
		c.Workers = f.workers
	}
	if pf.Changed("dpi") {
		c.DPI = f.dpi
	}
	if pf.Changed("overlap-threshold") {
		c.OverlapCleanThreshold = f.threshold
	}
	if pf.Changed("forest") {
		c.ForestLayer = f.forest
	}
}

package main

import (
	"context"
	"database/sql"
	"os"
	"path"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yumyai/phyloclust/logger"
	"github.com/yumyai/phyloclust/pkg/blastclust"
	"github.com/yumyai/phyloclust/pkg/cache"
	"github.com/yumyai/phyloclust/pkg/config"
	"github.com/yumyai/phyloclust/pkg/exttool"
	"github.com/yumyai/phyloclust/pkg/model"
	"github.com/yumyai/phyloclust/pkg/pipeline"
	"github.com/yumyai/phyloclust/pkg/seqio"

	_ "modernc.org/sqlite"
)

var (
	phyloclust_data string
)

func main() {

	// Try load env
	dotenvErr := godotenv.Load()

	// Establish logger
	VERSION := "0.1.0"
	LOG_LEVEL := zapcore.InfoLevel
	if os.Getenv("PHYLOCLUST_DEBUG") != "" {
		LOG_LEVEL = zapcore.DebugLevel
	}

	if err := logger.InitLogger(LOG_LEVEL); err != nil {
		panic(err)
	}

	if dotenvErr != nil {
		logger.Warn("No .env found, using local environment")
	}

	defer logger.Sync() // Make sure that the buffered is flushed.

	phyloclust_data = os.Getenv("PHYLOCLUST_DATA")

	if phyloclust_data == "" {
		logger.Warn("No local environment (PHYLOCLUST_DATA), using default value (./data)")
		phyloclust_data = "./data"
	}

	logger.Info("Start:", zap.String("Version", VERSION))

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "phyloclust",
		Short:        "cluster-processing engine for phylogenomic pipelines",
		SilenceUsage: true,
	}
	root.AddCommand(newClusterCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newReportCmd())
	return root
}

// phyloclust cluster: blast report -> membership table
func newClusterCmd() *cobra.Command {
	var (
		blastFile  string
		rootname   string
		maxMembers int
		values     string
		out        string
	)
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "build families from a tabular blast report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if blastFile == "" {
				return &model.ArgumentError{Msg: "cluster needs --blast"}
			}
			filter, err := parseFilterFlag(values)
			if err != nil {
				return err
			}
			fh, err := os.Open(blastFile)
			if err != nil {
				return &model.InputError{Msg: "opening blast report", Err: err}
			}
			defer fh.Close()
			cs, err := blastclust.BuildFromTabular(fh, blastclust.Options{
				Rootname:          rootname,
				Filter:            filter,
				MaxClusterMembers: maxMembers,
			})
			if err != nil {
				return err
			}
			logger.Info("clusters built", zap.Int("families", cs.Len()))
			w := os.Stdout
			if out != "" {
				w, err = os.Create(out)
				if err != nil {
					return err
				}
				defer w.Close()
			}
			return seqio.WriteMembership(w, cs)
		},
	}
	cmd.Flags().StringVar(&blastFile, "blast", "", "tabular blast report")
	cmd.Flags().StringVar(&rootname, "root", "cluster", "rootname for family ids")
	cmd.Flags().IntVar(&maxMembers, "max-members", 0, "cap on cluster size (0 = unlimited)")
	cmd.Flags().StringVar(&values, "values", "", "filter, e.g. 'pct_identity => >75; align_length => >60'")
	cmd.Flags().StringVar(&out, "out", "", "membership output file (default stdout)")
	return cmd
}

// phyloclust run: full config-driven pipeline
func newRunCmd() *cobra.Command {
	var (
		runFile  string
		rootname string
		outDir   string
		workers  int
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the configured analysis paths over a cluster source",
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(runFile)
			if err != nil {
				return &model.InputError{Msg: "opening run file", Err: err}
			}
			run, err := config.Parse(fh)
			fh.Close()
			if err != nil {
				return err
			}

			cs, err := pipeline.Ingest(run, rootname)
			if err != nil {
				return err
			}

			runner := exttool.NewRunner(path.Join(phyloclust_data, "scratch"), 0)
			p := pipeline.New(cs, runner)
			p.Workers = workers

			if !noCache {
				db, err := sql.Open("sqlite", path.Join(phyloclust_data, "db/artifact_cache.db"))
				if err == nil {
					if c, cerr := cache.New(db); cerr == nil {
						p.Cache = c
					} else {
						logger.Warn("artifact cache unavailable", zap.Error(cerr))
					}
				}
			}

			ctx := context.Background()
			for _, pth := range run.Paths {
				failed, err := p.RunPath(ctx, pth, outDir)
				if err != nil {
					return err
				}
				logger.Info("path finished",
					zap.Int("path", pth.ID),
					zap.String("name", pth.Name),
					zap.Int("families", cs.Len()),
					zap.Strings("failed", failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runFile, "config", "phyloclust.conf", "run file")
	cmd.Flags().StringVar(&rootname, "root", "cluster", "rootname for family ids")
	cmd.Flags().StringVar(&outDir, "out", "out", "artifact output directory")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = all CPUs)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the sqlite artifact cache")
	return cmd
}

// phyloclust report: per-family tallies from a membership table
func newReportCmd() *cobra.Command {
	var (
		membership string
		goTable    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "summarise a membership table, optionally joined with GO terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(membership, goTable, os.Stdout)
		},
	}
	cmd.Flags().StringVar(&membership, "membership", "", "membership table")
	cmd.Flags().StringVar(&goTable, "go", "", "GO annotation table")
	return cmd
}

func parseFilterFlag(values string) (blastclust.Filter, error) {
	if values == "" {
		return nil, nil
	}
	conds, err := config.ParseFilterValues(values)
	if err != nil {
		return nil, err
	}
	var out blastclust.Filter
	for _, c := range conds {
		out = append(out, blastclust.Condition{Field: c.Field, Op: c.Op, Threshold: c.Threshold})
	}
	return out, nil
}

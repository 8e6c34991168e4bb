package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/report"
	"github.com/akave-ai/newsreport/internal/runner"
	"github.com/akave-ai/newsreport/internal/server"
	"github.com/akave-ai/newsreport/internal/storage"
)

type rootFlags struct {
	configPath string
	database   string
	limit      int
	threshold  float64
	emptyMode  string
	skipViews  bool
	only       []string
	archive    bool
	port       string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootFlags{})
}

func buildRootCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "newsreport",
		Short: "Report popular articles, popular authors and high-error days from the news access log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()
			return runReports(cmd, a, f.archive)
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (default $"+config.ConfigPathEnvVar+")")
	pf.StringVar(&f.database, "db", "", "database name (default \""+config.DefaultDatabaseName+"\")")
	pf.IntVar(&f.limit, "limit", 0, "number of popular articles to report")
	pf.Float64Var(&f.threshold, "threshold", 0, "error percentage a day must exceed to be reported")
	pf.StringVar(&f.emptyMode, "empty", "", "how to render empty reports: suppress or border")
	pf.BoolVar(&f.skipViews, "skip-views", false, "do not recreate the report views")

	cmd.Flags().StringSliceVar(&f.only, "only", nil, "run only these reports (articles, authors, errors)")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "upload the run snapshot to the configured O3 bucket")

	cmd.AddCommand(newServeCmd(f), newViewsCmd(f))
	return cmd
}

func newServeCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reports as JSON over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(cmd, a)
		},
	}
	cmd.Flags().StringVar(&f.port, "port", "", "HTTP port (default from config)")
	return cmd
}

func newViewsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "Drop and recreate the report views, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd, f)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			sess, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer sess.Close(ctx)
			if err := database.CreateViews(ctx, sess); err != nil {
				return err
			}
			a.log.Info().Int("views", len(database.Views())).Msg("views recreated")
			return nil
		},
	}
}

// loadApp loads configuration and lets explicitly set flags override it.
func loadApp(cmd *cobra.Command, f *rootFlags) (*app, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newApp(cfg)
}

func applyFlags(cmd *cobra.Command, f *rootFlags, cfg *config.Config) {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("db") {
		cfg.Database.Name = f.database
	}
	if changed("limit") {
		cfg.Report.ArticleLimit = f.limit
	}
	if changed("threshold") {
		cfg.Report.ErrorThreshold = f.threshold
	}
	if changed("empty") {
		cfg.Report.EmptyMode = f.emptyMode
	}
	if changed("skip-views") {
		cfg.Report.SkipViews = f.skipViews
	}
	if changed("only") {
		cfg.Report.Only = f.only
	}
	if changed("port") {
		cfg.Server.Port = f.port
	}
}

func runReports(cmd *cobra.Command, a *app, archive bool) error {
	ctx := cmd.Context()
	reg := report.DefaultRegistry(a.cfg.Report)

	r := runner.New(a.cfg.Report, reg, a.connect, cmd.OutOrStdout(), a.log, runner.WithAgent(a.agent))
	snap, err := r.Run(ctx)
	if err != nil {
		return err
	}
	if len(snap.Failed) > 0 {
		a.log.Warn().Strs("failed", snap.Failed).Msg("some reports failed")
	}

	if !archive {
		return nil
	}
	client, err := storage.NewO3Client(a.cfg.Storage.O3)
	if err != nil || client == nil {
		a.log.Error().Err(err).Msg("archive requested but O3 storage is not configured")
		return nil
	}
	if err := client.EnsureBucket(ctx); err != nil {
		a.log.Warn().Err(err).Msg("ensure O3 bucket; upload may fail")
	}
	key, err := client.ArchiveSnapshot(ctx, snap)
	if err != nil {
		a.log.Error().Err(err).Msg("archive snapshot")
		return nil
	}
	a.log.Info().Str("key", key).Str("run_id", snap.RunID.String()).Msg("snapshot archived")
	return nil
}

func serve(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()

	var archive *storage.O3Client
	if a.cfg.Storage.O3.Enabled() {
		c, err := storage.NewO3Client(a.cfg.Storage.O3)
		if err != nil {
			return fmt.Errorf("o3 client: %w", err)
		}
		archive = c
	}

	sess, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer sess.Close(context.WithoutCancel(ctx))

	if !a.cfg.Report.SkipViews {
		if err := database.CreateViews(ctx, sess); err != nil {
			a.log.Error().Err(err).Msg("view setup failed; reports may fail until POST /views/refresh succeeds")
		}
	}

	srv := server.New(a.cfg, sess, report.DefaultRegistry(a.cfg.Report), archive, a.log)
	return srv.Start(ctx)
}

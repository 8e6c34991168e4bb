// Package runner sequences one reporting run: connect, build views, run every
// selected report in its own transaction, close.
package runner

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/model"
	"github.com/akave-ai/newsreport/internal/observability"
	"github.com/akave-ai/newsreport/internal/report"
	"github.com/akave-ai/newsreport/internal/repository"
)

// ConnectFunc opens the session a run works on.
type ConnectFunc func(ctx context.Context) (*database.Session, error)

type Runner struct {
	cfg      config.ReportConfig
	registry *report.Registry
	printer  *report.Printer
	connect  ConnectFunc
	agent    *observability.Agent
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*Runner)

// WithAgent records each report as a New Relic transaction.
func WithAgent(a *observability.Agent) Option {
	return func(r *Runner) { r.agent = a }
}

// WithClock overrides the time source used for snapshots.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New returns a Runner printing to out.
func New(cfg config.ReportConfig, registry *report.Registry, connect ConnectFunc, out io.Writer, log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:      cfg,
		registry: registry,
		printer:  report.NewPrinter(out, cfg.EmptyMode),
		connect:  connect,
		log:      log.With().Str("component", "runner").Logger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the selected reports. The only errors returned are an invalid
// report selection and a *database.ConnectionError; report failures are
// printed, logged and listed in Snapshot.Failed.
func (r *Runner) Run(ctx context.Context) (*model.Snapshot, error) {
	generators, err := r.registry.Select(r.cfg.Only)
	if err != nil {
		return nil, err
	}

	sess, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Close even when ctx was cancelled mid-run.
		_ = sess.Close(context.WithoutCancel(ctx))
	}()

	snap := model.NewSnapshot(sess.Database(), r.now())
	snap.ArticleLimit = r.cfg.ArticleLimit
	snap.ErrorThreshold = r.cfg.ErrorThreshold

	if !r.cfg.SkipViews {
		if err := database.CreateViews(ctx, sess); err != nil {
			r.log.Error().Err(err).Msg("view setup failed; reports may fail")
			r.write(r.printer.PrintError("create report views"))
		}
	}

	for _, g := range generators {
		r.runReport(ctx, sess, g, snap)
	}
	return snap, nil
}

func (r *Runner) runReport(ctx context.Context, sess *database.Session, g report.Generator, snap *model.Snapshot) {
	ctx, end := r.agent.StartReport(ctx, g.Name())

	start := r.now()
	var res report.Result
	err := sess.WithTx(ctx, func(q database.Querier) error {
		var err error
		res, err = g.Run(ctx, repository.NewReportRepository(q))
		return err
	})
	end(err)

	if err != nil {
		r.log.Error().Err(err).Str("report", g.Name()).Msg("report failed, transaction rolled back")
		snap.Failed = append(snap.Failed, g.Name())
		r.write(r.printer.PrintFailure(g.Description()))
		return
	}

	r.log.Debug().
		Str("report", g.Name()).
		Int("rows", len(res.Listing.Lines)).
		Dur("took", r.now().Sub(start)).
		Msg("report done")
	snap.Record(res.Rows)
	r.write(r.printer.Print(res.Listing))
}

func (r *Runner) write(err error) {
	if err != nil {
		r.log.Warn().Err(err).Msg("write report output")
	}
}

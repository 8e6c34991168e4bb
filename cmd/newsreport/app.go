package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/logging"
	"github.com/akave-ai/newsreport/internal/observability"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	agent *observability.Agent
}

func newApp(cfg *config.Config) (*app, error) {
	log := logging.New(cfg.Logging)

	cfg.Observability.Environment = cfg.Primary.Env
	agent, err := observability.NewAgent(cfg.Observability)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, agent: agent}, nil
}

func (a *app) connect(ctx context.Context) (*database.Session, error) {
	var opts []database.Option
	if a.cfg.Logging.TraceSQL {
		opts = append(opts, database.WithTracer(database.SQLLogTracer(a.log)))
	}
	if a.agent != nil {
		opts = append(opts, database.WithTracer(database.NewRelicTracer()))
	}
	return database.Connect(ctx, a.cfg.Database, a.log, opts...)
}

func (a *app) close() {
	a.agent.Shutdown(10 * time.Second)
}

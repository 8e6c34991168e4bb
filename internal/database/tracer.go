package database

import (
	zerologadapter "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/newrelic/go-agent/v3/integrations/nrpgx5"
	"github.com/rs/zerolog"
)

// SQLLogTracer logs every statement, its arguments and duration at debug level.
func SQLLogTracer(log zerolog.Logger) pgx.QueryTracer {
	return &tracelog.TraceLog{
		Logger:   zerologadapter.NewLogger(log.With().Str("component", "pgx").Logger()),
		LogLevel: tracelog.LogLevelDebug,
	}
}

// NewRelicTracer records datastore segments on the New Relic transaction
// carried by the query context. Queries without one are not recorded.
func NewRelicTracer() pgx.QueryTracer {
	return nrpgx5.NewTracer()
}

package database

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/akave-ai/newsreport/internal/config"
)

// Querier is the query surface shared by a Session and an open transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Conn is the part of *pgx.Conn a Session drives.
type Conn interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// ConnectionError reports that the database could not be reached at all.
// It is fatal to a run.
type ConnectionError struct {
	Database string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to establish connection to %q database: %v", e.Database, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Session owns the single connection used for a run.
type Session struct {
	conn     Conn
	database string
	log      zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession wraps an already open connection.
func NewSession(conn Conn, database string, log zerolog.Logger) *Session {
	return &Session{
		conn:     conn,
		database: database,
		log:      log.With().Str("component", "database").Str("database", database).Logger(),
	}
}

type options struct {
	tracers []pgx.QueryTracer
}

// Option customizes Connect.
type Option func(*options)

// WithTracer attaches a query tracer to the connection. Multiple tracers are combined.
func WithTracer(t pgx.QueryTracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracers = append(o.tracers, t)
		}
	}
}

// Connect opens one connection to the configured database. Any failure is
// logged with the database name and returned as a *ConnectionError.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger, opts ...Option) (*Session, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := cfg.Name
	connCfg, err := pgx.ParseConfig(ConnString(cfg))
	if err != nil {
		log.Error().Err(err).Str("database", name).Msg("invalid database connection settings")
		return nil, &ConnectionError{Database: name, Err: err}
	}
	if connCfg.Database != "" {
		name = connCfg.Database
	}

	switch len(o.tracers) {
	case 0:
	case 1:
		connCfg.Tracer = o.tracers[0]
	default:
		connCfg.Tracer = multitracer.New(o.tracers...)
	}

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		log.Error().Err(err).Str("database", name).Msg("failed to establish database connection")
		return nil, &ConnectionError{Database: name, Err: err}
	}

	s := NewSession(conn, name, log)
	s.log.Debug().Str("host", connCfg.Host).Uint16("port", connCfg.Port).Msg("connected")
	return s, nil
}

// ConnString renders cfg as a keyword/value connection string. URL wins when set.
func ConnString(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+quote(v))
		}
	}
	add("host", cfg.Host)
	if cfg.Port > 0 {
		add("port", strconv.Itoa(cfg.Port))
	}
	add("user", cfg.User)
	add("password", cfg.Password)
	add("dbname", cfg.Name)
	add("sslmode", cfg.SSLMode)
	if cfg.ConnectTimeout > 0 {
		// libpq takes whole seconds; round up so sub-second values survive.
		secs := int(math.Ceil(cfg.ConnectTimeout.Seconds()))
		add("connect_timeout", strconv.Itoa(secs))
	}
	return strings.Join(parts, " ")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Database returns the name of the connected database.
func (s *Session) Database() string { return s.database }

func (s *Session) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.conn.Exec(ctx, sql, args...)
}

func (s *Session) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return s.conn.Query(ctx, sql, args...)
}

func (s *Session) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return s.conn.QueryRow(ctx, sql, args...)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (s *Session) WithTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection. Calling it more than once is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(ctx); err != nil {
		s.log.Warn().Err(err).Msg("close connection")
		return err
	}
	s.log.Debug().Msg("connection closed")
	return nil
}

package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/handler"
	"github.com/akave-ai/newsreport/internal/report"
	"github.com/akave-ai/newsreport/internal/storage"
)

// Server holds the Echo app and the session it serves reports from.
type Server struct {
	Echo    *echo.Echo
	Config  *config.Config
	session *database.Session
	log     zerolog.Logger
}

// New builds the Echo server and registers routes.
// archive may be nil when O3 is not configured.
func New(cfg *config.Config, sess *database.Session, registry *report.Registry, archive *storage.O3Client, log zerolog.Logger) *Server {
	log = log.With().Str("component", "server").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.Use(middleware.Recover(), requestLogger(log))

	h := &handler.ReportHandler{
		Session:  sess,
		Registry: registry,
		Defaults: cfg.Report,
		Archive:  archive,
		Log:      log,
	}

	e.GET("/healthz", h.Health)

	e.GET("/reports", h.ListReports)
	e.GET("/reports/articles", h.PopularArticles)
	e.GET("/reports/authors", h.PopularAuthors)
	e.GET("/reports/errors", h.ErrorDays)

	e.POST("/views/refresh", h.RefreshViews)

	e.GET("/archives", h.ListArchives)
	e.GET("/archives/content", h.GetArchive)

	log.Info().Strs("reports", registry.ListRegistered()).Bool("archive", archive != nil).Msg("routes registered")

	return &Server{Echo: e, Config: cfg, session: sess, log: log}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// Start serves on the configured port until ctx is cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.WithoutCancel(ctx))
	}()
	addr := ":" + s.Config.Server.Port
	s.log.Info().Str("addr", addr).Msg("listening")
	if err := s.Echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then closes the database session.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return errors.Join(err, s.session.Close(ctx))
}

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/newsreport/internal/config"
	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/report"
	"github.com/akave-ai/newsreport/internal/repository"
	"github.com/akave-ai/newsreport/internal/response"
	"github.com/akave-ai/newsreport/internal/storage"
)

// ReportHandler serves the reports over HTTP. All handlers share one
// database session, so every database call holds mu.
type ReportHandler struct {
	Session  *database.Session
	Registry *report.Registry
	Defaults config.ReportConfig
	Archive  *storage.O3Client // optional
	Log      zerolog.Logger

	mu sync.Mutex
}

type reportResponse struct {
	Report string   `json:"report"`
	Title  string   `json:"title"`
	Lines  []string `json:"lines"`
	Rows   any      `json:"rows"`
}

// Health pings the database (GET /healthz).
func (h *ReportHandler) Health(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, err := h.Session.Exec(c.Request().Context(), "SELECT 1"); err != nil {
		return response.Error(c, http.StatusServiceUnavailable, "database unavailable", err.Error())
	}
	return response.OK(c, map[string]any{"database": h.Session.Database()}, "ok")
}

// ListReports describes every registered report (GET /reports).
func (h *ReportHandler) ListReports(c echo.Context) error {
	return response.OK(c, map[string]any{"reports": h.Registry.AllInfo()}, "")
}

// PopularArticles handles GET /reports/articles?limit=N.
func (h *ReportHandler) PopularArticles(c echo.Context) error {
	limit := h.Defaults.ArticleLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return response.BadRequest(c, "invalid limit", "limit must be a non-negative integer")
		}
		limit = n
	}
	return h.run(c, report.PopularArticles{Limit: limit})
}

// PopularAuthors handles GET /reports/authors.
func (h *ReportHandler) PopularAuthors(c echo.Context) error {
	return h.run(c, report.PopularAuthors{})
}

// ErrorDays handles GET /reports/errors?threshold=X.
func (h *ReportHandler) ErrorDays(c echo.Context) error {
	threshold := h.Defaults.ErrorThreshold
	if raw := c.QueryParam("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return response.BadRequest(c, "invalid threshold", "threshold must be a number")
		}
		threshold = v
	}
	return h.run(c, report.ErrorDays{Threshold: threshold})
}

// RefreshViews drops and recreates the derived views (POST /views/refresh).
func (h *ReportHandler) RefreshViews(c echo.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := database.CreateViews(c.Request().Context(), h.Session); err != nil {
		h.Log.Error().Err(err).Msg("refresh views")
		return response.QueryFailed(c, "failed to create report views", err.Error())
	}
	names := make([]string, 0, len(database.Views()))
	for _, v := range database.Views() {
		names = append(names, v.Name)
	}
	return response.OK(c, map[string]any{"views": names}, "views recreated")
}

// ListArchives lists archived snapshots (GET /archives?prefix=).
func (h *ReportHandler) ListArchives(c echo.Context) error {
	if h.Archive == nil {
		return response.OK(c, map[string]any{"objects": []storage.ObjectInfo{}}, "O3 not configured")
	}
	list, err := h.Archive.ListSnapshots(c.Request().Context(), c.QueryParam("prefix"))
	if err != nil {
		return response.InternalError(c, "list archives failed", err.Error())
	}
	return response.OK(c, map[string]any{"objects": list}, "")
}

// GetArchive returns one archived snapshot (GET /archives/content?key=).
func (h *ReportHandler) GetArchive(c echo.Context) error {
	if h.Archive == nil {
		return response.BadRequest(c, "O3 not configured", "O3 not configured")
	}
	key := c.QueryParam("key")
	if key == "" {
		return response.BadRequest(c, "missing key", "query param key is required")
	}
	snap, err := h.Archive.GetSnapshot(c.Request().Context(), key)
	if errors.Is(err, storage.ErrSnapshotNotFound) {
		return response.NotFound(c, "archive not found", err.Error())
	}
	if err != nil {
		return response.InternalError(c, "get archive failed", err.Error())
	}
	return response.OK(c, snap, "")
}

func (h *ReportHandler) run(c echo.Context, g report.Generator) error {
	ctx := c.Request().Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	var res report.Result
	err := h.Session.WithTx(ctx, func(q database.Querier) error {
		var err error
		res, err = g.Run(ctx, repository.NewReportRepository(q))
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidThreshold) || errors.Is(err, repository.ErrInvalidLimit) {
			return response.BadRequest(c, "invalid parameter", err.Error())
		}
		h.Log.Error().Err(err).Str("report", g.Name()).Msg("report failed, transaction rolled back")
		return response.QueryFailed(c, "failed to fetch "+g.Description(), err.Error())
	}
	lines := res.Listing.Lines
	if lines == nil {
		lines = []string{}
	}
	return response.OK(c, reportResponse{
		Report: g.Name(),
		Title:  res.Listing.Title,
		Lines:  lines,
		Rows:   res.Rows,
	}, "")
}

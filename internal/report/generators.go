package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/akave-ai/newsreport/internal/repository"
)

// Generator produces one report from the derived views.
type Generator interface {
	Name() string
	// Description names what the report fetches, e.g. "popular articles".
	Description() string
	Info() Info
	Run(ctx context.Context, repo *repository.ReportRepository) (Result, error)
}

// Result carries the printable listing and the raw rows it was built from.
type Result struct {
	Listing Listing
	// Rows is []model.ArticleViews, []model.AuthorViews or []model.ErrorDay.
	Rows any
}

// PopularArticles ranks articles by successful views, keeping the top Limit.
type PopularArticles struct {
	Limit int
}

// Name implements Generator.
func (PopularArticles) Name() string { return "articles" }

// Description implements Generator.
func (PopularArticles) Description() string { return "popular articles" }

// Info describes the report and its limit parameter.
func (g PopularArticles) Info() Info {
	return Info{
		Name:        g.Name(),
		Title:       "Popular Articles",
		Description: "Most viewed articles, ranked by successful requests to their path.",
		Params: []ParamInfo{
			{Name: "limit", Type: "number", Description: "Maximum number of articles", Default: strconv.Itoa(g.Limit)},
		},
	}
}

// Run fetches the top articles and formats "<title> (<n> views)" lines.
func (g PopularArticles) Run(ctx context.Context, repo *repository.ReportRepository) (Result, error) {
	rows, err := repo.PopularArticles(ctx, g.Limit)
	if err != nil {
		return Result{}, err
	}
	l := Listing{Title: "Popular Articles"}
	for _, r := range rows {
		l.Lines = append(l.Lines, fmt.Sprintf("%s (%d views)", r.Title, r.Views))
	}
	return Result{Listing: l, Rows: rows}, nil
}

// PopularAuthors ranks authors by the summed views of all their articles.
type PopularAuthors struct{}

// Name implements Generator.
func (PopularAuthors) Name() string { return "authors" }

// Description implements Generator.
func (PopularAuthors) Description() string { return "popular authors" }

// Info describes the report. It takes no parameters.
func (g PopularAuthors) Info() Info {
	return Info{
		Name:        g.Name(),
		Title:       "Popular Authors",
		Description: "Authors ranked by the total views of their articles.",
	}
}

// Run fetches every author with views and formats "<name> (<n> article views)" lines.
func (PopularAuthors) Run(ctx context.Context, repo *repository.ReportRepository) (Result, error) {
	rows, err := repo.PopularAuthors(ctx)
	if err != nil {
		return Result{}, err
	}
	l := Listing{Title: "Popular Authors"}
	for _, r := range rows {
		l.Lines = append(l.Lines, fmt.Sprintf("%s (%d article views)", r.Name, r.Views))
	}
	return Result{Listing: l, Rows: rows}, nil
}

// ErrorDays lists the days whose error percentage exceeds Threshold.
type ErrorDays struct {
	// Threshold is a percentage: 1 means 1%.
	Threshold float64
}

// Name implements Generator.
func (ErrorDays) Name() string { return "errors" }

// Description implements Generator.
func (ErrorDays) Description() string { return "daily request error rates" }

// Info describes the report and its threshold parameter.
func (g ErrorDays) Info() Info {
	return Info{
		Name:        g.Name(),
		Title:       "Daily Request Error Rates",
		Description: "Days whose share of non-200 requests exceeds the threshold.",
		Params: []ParamInfo{
			{Name: "threshold", Type: "number", Description: "Error percentage to exceed", Default: formatPercent(g.Threshold)},
		},
	}
}

// Run fetches the days above Threshold and formats "<day> (<pct>% errors)" lines.
func (g ErrorDays) Run(ctx context.Context, repo *repository.ReportRepository) (Result, error) {
	rows, err := repo.ErrorDays(ctx, g.Threshold)
	if err != nil {
		return Result{}, err
	}
	l := Listing{Title: fmt.Sprintf("Daily Request Error Rates > %s%%", formatPercent(g.Threshold))}
	for _, r := range rows {
		l.Lines = append(l.Lines, fmt.Sprintf("%s (%.2f%% errors)", r.Day, r.ErrorPercent))
	}
	return Result{Listing: l, Rows: rows}, nil
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

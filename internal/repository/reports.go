package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/akave-ai/newsreport/internal/database"
	"github.com/akave-ai/newsreport/internal/model"
)

// DayFormat is the to_char pattern used for error days, e.g. "Jan 05, 2024".
const DayFormat = "Mon DD, YYYY"

var (
	ErrInvalidLimit     = errors.New("article limit must not be negative")
	ErrInvalidThreshold = errors.New("error threshold must be a finite number")
)

const (
	popularArticlesQuery = `
		SELECT title, count
		FROM article_views
		ORDER BY count DESC
		LIMIT $1`

	popularAuthorsQuery = `
		SELECT authors.name, sum(article_views.count)::bigint AS views
		FROM authors
		JOIN article_views ON authors.id = article_views.author
		GROUP BY authors.id, authors.name
		ORDER BY views DESC`

	// Days with zero requests divide by NULL and drop out of the WHERE clause.
	errorDaysQuery = `
		SELECT to_char(request_count.time, $1) AS day,
			ROUND(error_count.errors::numeric / NULLIF(request_count.requests, 0) * 100, 2)::float8 AS error_percent
		FROM request_count
		JOIN error_count ON request_count.time = error_count.time
		WHERE ROUND(error_count.errors::numeric / NULLIF(request_count.requests, 0) * 100, 2) > $2
		ORDER BY error_percent DESC`
)

// ReportRepository reads the ranked report rows from the derived views.
type ReportRepository struct {
	q database.Querier
}

// NewReportRepository returns a ReportRepository over q, typically an open transaction.
func NewReportRepository(q database.Querier) *ReportRepository {
	return &ReportRepository{q: q}
}

// PopularArticles returns at most limit articles ordered by view count descending.
func (r *ReportRepository) PopularArticles(ctx context.Context, limit int) ([]model.ArticleViews, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := r.q.Query(ctx, popularArticlesQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular articles: %w", err)
	}
	defer rows.Close()

	var list []model.ArticleViews
	for rows.Next() {
		var a model.ArticleViews
		if err := rows.Scan(&a.Title, &a.Views); err != nil {
			return nil, fmt.Errorf("scan popular articles: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// PopularAuthors returns every author with at least one view, ordered by
// the sum of their articles' views descending.
func (r *ReportRepository) PopularAuthors(ctx context.Context) ([]model.AuthorViews, error) {
	rows, err := r.q.Query(ctx, popularAuthorsQuery)
	if err != nil {
		return nil, fmt.Errorf("query popular authors: %w", err)
	}
	defer rows.Close()

	var list []model.AuthorViews
	for rows.Next() {
		var a model.AuthorViews
		if err := rows.Scan(&a.Name, &a.Views); err != nil {
			return nil, fmt.Errorf("scan popular authors: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// ErrorDays returns the days whose error percentage, rounded to two
// decimals, is strictly greater than threshold, highest first. Any finite
// threshold is accepted; days without errors never appear.
func (r *ReportRepository) ErrorDays(ctx context.Context, threshold float64) ([]model.ErrorDay, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, ErrInvalidThreshold
	}
	rows, err := r.q.Query(ctx, errorDaysQuery, DayFormat, threshold)
	if err != nil {
		return nil, fmt.Errorf("query error days: %w", err)
	}
	defer rows.Close()

	var list []model.ErrorDay
	for rows.Next() {
		var d model.ErrorDay
		if err := rows.Scan(&d.Day, &d.ErrorPercent); err != nil {
			return nil, fmt.Errorf("scan error days: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

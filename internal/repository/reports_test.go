package repository

import (
	"context"
	"errors"
	"math"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/newsreport/internal/model"
)

func newMockRepo(t *testing.T) (*ReportRepository, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	return NewReportRepository(mock), mock
}

func TestReportRepository_PopularArticles(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularArticlesQuery)).
		WithArgs(3).
		WillReturnRows(pgxmock.NewRows([]string{"title", "count"}).
			AddRow("Candidate is jerk, alleges rival", int64(338647)).
			AddRow("Bears love berries, alleges bear", int64(253801)).
			AddRow("Bad things gone, say good people", int64(170098)))

	got, err := repo.PopularArticles(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []model.ArticleViews{
		{Title: "Candidate is jerk, alleges rival", Views: 338647},
		{Title: "Bears love berries, alleges bear", Views: 253801},
		{Title: "Bad things gone, say good people", Views: 170098},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularArticles_Scenario(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularArticlesQuery)).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"title", "count"}).AddRow("foo-title", int64(100)))

	got, err := repo.PopularArticles(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []model.ArticleViews{{Title: "foo-title", Views: 100}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularArticles_ZeroLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularArticlesQuery)).
		WithArgs(0).
		WillReturnRows(pgxmock.NewRows([]string{"title", "count"}))

	got, err := repo.PopularArticles(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularArticles_NegativeLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	_, err := repo.PopularArticles(context.Background(), -1)
	require.ErrorIs(t, err, ErrInvalidLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularArticles_QueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularArticlesQuery)).
		WithArgs(3).
		WillReturnError(errors.New(`relation "article_views" does not exist`))

	got, err := repo.PopularArticles(context.Background(), 3)
	require.Nil(t, got)
	require.ErrorContains(t, err, "query popular articles")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularAuthors(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularAuthorsQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "views"}).
			AddRow("Alice", int64(100)))

	got, err := repo.PopularAuthors(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.AuthorViews{{Name: "Alice", Views: 100}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_PopularAuthors_RowError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(popularAuthorsQuery)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "views"}).
			AddRow("Alice", int64(100)).
			AddRow("Bob", int64(50)).
			RowError(1, errors.New("connection reset")))

	_, err := repo.PopularAuthors(context.Background())
	require.ErrorContains(t, err, "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ErrorDays(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(errorDaysQuery)).
		WithArgs(DayFormat, 1.0).
		WillReturnRows(pgxmock.NewRows([]string{"day", "error_percent"}).
			AddRow("Jan 05, 2024", 5.0))

	got, err := repo.ErrorDays(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []model.ErrorDay{{Day: "Jan 05, 2024", ErrorPercent: 5}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ErrorDays_AboveAllRates(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(errorDaysQuery)).
		WithArgs(DayFormat, 10.0).
		WillReturnRows(pgxmock.NewRows([]string{"day", "error_percent"}))

	got, err := repo.ErrorDays(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ErrorDays_NegativeThreshold(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(errorDaysQuery)).
		WithArgs(DayFormat, -0.5).
		WillReturnRows(pgxmock.NewRows([]string{"day", "error_percent"}).
			AddRow("Jan 05, 2024", 5.0).
			AddRow("Jan 06, 2024", 0.5))

	got, err := repo.ErrorDays(context.Background(), -0.5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepository_ErrorDays_InvalidThreshold(t *testing.T) {
	repo, mock := newMockRepo(t)

	for _, th := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := repo.ErrorDays(context.Background(), th)
		require.ErrorIs(t, err, ErrInvalidThreshold)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorDaysQuery_GuardsZeroRequests(t *testing.T) {
	require.Contains(t, errorDaysQuery, "NULLIF(request_count.requests, 0)")
}

func TestPopularAuthorsQuery_SumsAcrossArticles(t *testing.T) {
	require.Contains(t, popularAuthorsQuery, "sum(article_views.count)")
	require.Contains(t, popularAuthorsQuery, "GROUP BY authors.id, authors.name")
}

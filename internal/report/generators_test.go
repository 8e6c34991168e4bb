package report

import (
	"context"
	"errors"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/akave-ai/newsreport/internal/model"
	"github.com/akave-ai/newsreport/internal/repository"
)

func newMockRepo(t *testing.T) (*repository.ReportRepository, pgxmock.PgxConnIface) {
	t.Helper()
	mock, err := pgxmock.NewConn()
	require.NoError(t, err)
	return repository.NewReportRepository(mock), mock
}

func TestPopularArticles_Run(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM article_views")).
		WithArgs(1).
		WillReturnRows(pgxmock.NewRows([]string{"title", "count"}).AddRow("foo-title", int64(100)))

	res, err := PopularArticles{Limit: 1}.Run(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, "Popular Articles", res.Listing.Title)
	require.Equal(t, []string{"foo-title (100 views)"}, res.Listing.Lines)
	require.Equal(t, []model.ArticleViews{{Title: "foo-title", Views: 100}}, res.Rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPopularAuthors_Run(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM authors")).
		WillReturnRows(pgxmock.NewRows([]string{"name", "views"}).
			AddRow("Alice", int64(100)).
			AddRow("Bob", int64(3)))

	res, err := PopularAuthors{}.Run(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, []string{"Alice (100 article views)", "Bob (3 article views)"}, res.Listing.Lines)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorDays_Run(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_count")).
		WithArgs(repository.DayFormat, 1.0).
		WillReturnRows(pgxmock.NewRows([]string{"day", "error_percent"}).AddRow("Jan 05, 2024", 5.0))

	res, err := ErrorDays{Threshold: 1}.Run(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, "Daily Request Error Rates > 1%", res.Listing.Title)
	require.Equal(t, []string{"Jan 05, 2024 (5.00% errors)"}, res.Listing.Lines)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorDays_FractionalThresholdTitle(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_count")).
		WithArgs(repository.DayFormat, 2.5).
		WillReturnRows(pgxmock.NewRows([]string{"day", "error_percent"}))

	res, err := ErrorDays{Threshold: 2.5}.Run(context.Background(), repo)
	require.NoError(t, err)
	require.Equal(t, "Daily Request Error Rates > 2.5%", res.Listing.Title)
	require.Empty(t, res.Listing.Lines)
}

func TestGenerator_PropagatesQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM authors")).WillReturnError(errors.New("syntax error"))

	_, err := PopularAuthors{}.Run(context.Background(), repo)
	require.ErrorContains(t, err, "syntax error")
}

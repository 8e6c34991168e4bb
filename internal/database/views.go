package database

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
)

// View is a derived view the reports read from.
type View struct {
	Name  string
	Query string
}

// Status text the access log records for a successful request.
const statusOK = "200 OK"

// views are created in this order. article_views is independent; the
// error-rate report needs both request_count and error_count.
var views = []View{
	{
		Name: "article_views",
		Query: `
		SELECT articles.author, articles.title, count(*) AS count
		FROM log
		JOIN articles ON log.path = '/article/' || articles.slug
		WHERE log.status = '` + statusOK + `'
		GROUP BY articles.author, articles.title`,
	},
	{
		Name: "request_count",
		Query: `
		SELECT time::date AS time, count(*) AS requests
		FROM log
		GROUP BY time::date`,
	},
	{
		Name: "error_count",
		Query: `
		SELECT time::date AS time, count(*) AS errors
		FROM log
		WHERE status <> '` + statusOK + `'
		GROUP BY time::date`,
	},
}

// Views returns the view definitions in creation order.
func Views() []View {
	return slices.Clone(views)
}

// CreateViews drops and recreates every view, one transaction per view.
// The first failure stops the sequence.
func CreateViews(ctx context.Context, s *Session) error {
	for _, v := range views {
		err := s.WithTx(ctx, func(q Querier) error {
			return recreateView(ctx, q, v)
		})
		if err != nil {
			return fmt.Errorf("create view %s: %w", v.Name, err)
		}
		s.log.Debug().Str("view", v.Name).Msg("view recreated")
	}
	return nil
}

func recreateView(ctx context.Context, q Querier, v View) error {
	ident := pgx.Identifier{v.Name}.Sanitize()
	if _, err := q.Exec(ctx, "DROP VIEW IF EXISTS "+ident); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if _, err := q.Exec(ctx, "CREATE VIEW "+ident+" AS"+v.Query); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}

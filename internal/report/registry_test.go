package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akave-ai/newsreport/internal/config"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(config.ReportConfig{ArticleLimit: 5, ErrorThreshold: 2})

	require.Equal(t, []string{"articles", "authors", "errors"}, r.ListRegistered())

	g, ok := r.Get("articles")
	require.True(t, ok)
	require.Equal(t, PopularArticles{Limit: 5}, g)

	g, ok = r.Get("errors")
	require.True(t, ok)
	require.Equal(t, ErrorDays{Threshold: 2}, g)
}

func TestRegistry_RegisterReplacesInPlace(t *testing.T) {
	r := DefaultRegistry(config.ReportConfig{ArticleLimit: 3})
	r.Register(PopularArticles{Limit: 10})

	require.Equal(t, []string{"articles", "authors", "errors"}, r.ListRegistered())
	g, _ := r.Get("articles")
	require.Equal(t, PopularArticles{Limit: 10}, g)
}

func TestRegistry_Select(t *testing.T) {
	r := DefaultRegistry(config.ReportConfig{})

	all, err := r.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Registration order wins over the requested order.
	some, err := r.Select([]string{"errors", "articles"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	require.Equal(t, "articles", some[0].Name())
	require.Equal(t, "errors", some[1].Name())

	_, err = r.Select([]string{"visitors"})
	require.ErrorContains(t, err, "unknown report: visitors")
}

func TestRegistry_AllInfo(t *testing.T) {
	r := DefaultRegistry(config.ReportConfig{ArticleLimit: 3, ErrorThreshold: 1})

	info := r.AllInfo()
	require.Len(t, info, 3)
	require.Equal(t, "articles", info[0].Name)
	require.Equal(t, "3", info[0].Params[0].Default)
	require.Empty(t, info[1].Params)
	require.Equal(t, "1", info[2].Params[0].Default)
}

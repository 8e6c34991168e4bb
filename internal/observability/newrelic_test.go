package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akave-ai/newsreport/internal/config"
)

func TestNewAgent_Disabled(t *testing.T) {
	a, err := NewAgent(config.ObservabilityConfig{})
	require.NoError(t, err)
	require.Nil(t, a)
}

func TestNilAgent_IsNoop(t *testing.T) {
	var a *Agent
	ctx := context.Background()

	got, end := a.StartReport(ctx, "articles")
	require.Equal(t, ctx, got)
	end(errors.New("ignored"))
	a.Shutdown(time.Millisecond)
}

func TestNewAgent_RejectsBadLicense(t *testing.T) {
	_, err := NewAgent(config.ObservabilityConfig{
		ServiceName: "newsreport",
		NewRelic:    config.NewRelicConfig{Enabled: true, LicenseKey: "too-short"},
	})
	require.Error(t, err)
}

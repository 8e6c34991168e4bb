// Package observability wires the optional New Relic agent into a run.
package observability

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/akave-ai/newsreport/internal/config"
)

// Agent wraps a New Relic application. A nil *Agent is valid and does nothing.
type Agent struct {
	app *newrelic.Application
}

// NewAgent returns nil when New Relic is disabled.
func NewAgent(cfg config.ObservabilityConfig) (*Agent, error) {
	if !cfg.NewRelic.Enabled {
		return nil, nil
	}
	appName := cfg.NewRelic.AppName
	if appName == "" {
		appName = cfg.ServiceName
	}
	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(appName),
		newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
		newrelic.ConfigEnabled(true),
		func(c *newrelic.Config) {
			if cfg.Environment != "" {
				c.Labels = map[string]string{"env": cfg.Environment}
			}
		},
	)
	if err != nil {
		return nil, err
	}
	return &Agent{app: app}, nil
}

// StartReport opens a background transaction named report/<name> and returns
// a context carrying it plus the function that ends it.
func (a *Agent) StartReport(ctx context.Context, name string) (context.Context, func(error)) {
	if a == nil || a.app == nil {
		return ctx, func(error) {}
	}
	txn := a.app.StartTransaction("report/" + name)
	return newrelic.NewContext(ctx, txn), func(err error) {
		if err != nil {
			txn.NoticeError(err)
		}
		txn.End()
	}
}

// Shutdown flushes pending data, waiting at most timeout.
func (a *Agent) Shutdown(timeout time.Duration) {
	if a == nil || a.app == nil {
		return
	}
	a.app.Shutdown(timeout)
}

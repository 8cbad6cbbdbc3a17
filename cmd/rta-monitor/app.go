package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/xbl-rta/rta-go/pkg/config"
	rtalog "github.com/xbl-rta/rta-go/pkg/log"
	"github.com/xbl-rta/rta-go/pkg/metrics"
	"github.com/xbl-rta/rta-go/pkg/resource"
	"github.com/xbl-rta/rta-go/pkg/rta"
	"github.com/xbl-rta/rta-go/pkg/subscription"
)

// app wires a configured client to its logging, metrics and output.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *rta.Client
	out    *printer

	protoLog   *rtalog.FileLogger
	metricsSrv *metrics.Server
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// newApp builds the client described by cfg. Events go to out and logs to
// logOut. Nothing is dialed until Start.
func newApp(cfg *config.Config, out, logOut io.Writer) (*app, error) {
	logger, err := newLogger(logOut, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, out: newPrinter(out)}

	var sinks []rtalog.Logger
	if cfg.Logging.ProtocolLog != "" {
		fl, err := rtalog.NewFileLogger(cfg.Logging.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("opening protocol log: %w", err)
		}
		a.protoLog = fl
		sinks = append(sinks, fl)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, rtalog.NewSlogAdapter(logger))
	}
	var protoLogger rtalog.Logger
	if len(sinks) > 0 {
		protoLogger = rtalog.NewMultiLogger(sinks...)
	}

	var collector metrics.Collector
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		collector = metrics.NewPrometheusCollector(reg)
		a.metricsSrv = metrics.NewServer(cfg.Metrics.Addr, reg, logger)
	}

	client, err := rta.NewClient(rta.Config{
		Transport:      cfg.TransportConfig(logger),
		Connection:     cfg.ConnectionConfig(logger),
		Logger:         logger,
		ProtocolLogger: protoLogger,
		Metrics:        collector,

		MaxRequestsPerSecond: cfg.Endpoint.MaxRequestsPerSecond,
	})
	if err != nil {
		if a.protoLog != nil {
			a.protoLog.Close()
		}
		return nil, err
	}
	a.client = client

	conn := client.Connection()
	conn.SetResyncHandler(func() {
		logger.Warn("service requested resync; events may have been missed")
	})
	conn.SetResubscribeHandler(func(err error) {
		if err != nil {
			logger.Warn("some subscriptions could not be restored", "error", err)
		}
	})
	return a, nil
}

// Start launches the metrics server and connects. A failed first dial is
// logged and retried in the background unless reconnects are disabled.
func (a *app) Start(ctx context.Context) error {
	if a.metricsSrv != nil {
		addr, err := a.metricsSrv.Start()
		if err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		a.logger.Info("metrics listening", "addr", addr.String(), "path", metrics.Endpoint)
	}

	if err := a.client.Start(ctx); err != nil {
		if !a.cfg.Reconnect.Enabled {
			return fmt.Errorf("connecting to %s: %w", a.cfg.Endpoint.URL, err)
		}
		a.logger.Warn("initial connect failed; retrying in background", "error", err)
	}
	return nil
}

// Subscribe subscribes to one resource and prints its events.
func (a *app) Subscribe(ctx context.Context, kind resource.Kind, params resource.Params) (*subscription.Subscription, error) {
	return a.client.Subscribe(ctx, kind, params, a.out.Event, a.out.Error)
}

// Close stops the client and flushes the protocol log.
func (a *app) Close() error {
	var result *multierror.Error
	if err := a.client.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := a.metricsSrv.Shutdown(ctx)
		cancel()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			result = multierror.Append(result, err)
		}
	}
	if a.protoLog != nil {
		if err := a.protoLog.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		a.logger.Info("protocol log closed", "path", a.cfg.Logging.ProtocolLog, "events", a.protoLog.Written())
	}
	return result.ErrorOrNil()
}

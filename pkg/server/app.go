package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"FinCast/internal/scheduler"
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/queue"
)

// Components are the runnable parts of the service. Optional ones are nil when disabled.
type Components struct {
	HTTP      *xhttp.Server
	Forecasts *usecase.ForecastService
	Analyzer  *usecase.PortfolioAnalyzer
	Holdings  *usecase.HoldingsForecaster
	Scheduler *scheduler.Scheduler
	Consumer  *pkgkafka.Consumer
	Queue     *queue.RedisQueue
	Collector *usecase.QuoteCollector
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg     *config.Config
	l       *applogger.Logger
	c       Components
	closers []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	return &App{cfg: cfg, l: l, c: c}
}

// OnClose registers a resource released after every component stopped, in reverse order.
func (a *App) OnClose(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

func (a *App) Forecasts() *usecase.ForecastService { return a.c.Forecasts }

func (a *App) Analyzer() *usecase.PortfolioAnalyzer { return a.c.Analyzer }

func (a *App) Holdings() *usecase.HoldingsForecaster { return a.c.Holdings }

func (a *App) Logger() *applogger.Logger { return a.l }

// Run starts every configured component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		_ = a.shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.shutdown(context.Background())
}

func (a *App) start(ctx context.Context) error {
	if col := a.c.Collector; col != nil {
		if err := col.Start(ctx); err != nil {
			// prices fall back to the other sources
			a.l.Error("quote collector start error", applogger.Error(err))
		} else {
			a.l.Info("quote collector started", applogger.Strings("symbols", a.cfg.Finnhub.Symbols))
		}
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
	}

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			a.l.Error("job queue start error", applogger.Error(err))
			return err
		}
	}

	if s := a.c.Scheduler; s != nil {
		s.Start()
		go s.RunNow()
	}

	if err := a.c.HTTP.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// shutdown stops intake first, then waits for training, then releases clients.
func (a *App) shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if a.c.HTTP != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.c.HTTP.Stop(stopCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	if a.c.Scheduler != nil {
		a.c.Scheduler.Stop()
	}

	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.c.Queue != nil {
		stopCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
		if err := a.c.Queue.Stop(stopCtx); err != nil {
			a.l.Warn("job queue stop error", applogger.Error(err))
		}
		cancel()
	}

	if a.c.Collector != nil {
		if err := a.c.Collector.Shutdown(ctx); err != nil {
			a.l.Warn("quote collector stop error", applogger.Error(err))
		}
	}

	a.Close()
	a.l.Info("shutdown complete")
	return nil
}

// Close waits for background training and releases infrastructure clients.
// The CLI commands call it directly; Run calls it on shutdown.
func (a *App) Close() {
	if a.c.Forecasts != nil {
		a.c.Forecasts.Wait()
	}
	a.l.RemoveCollector()
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
		}
	}
	a.closers = nil
}

// Package blinkyd runs the blinky machine as a small daemon: it logs the
// snapshot on every state change and serves the snapshot as Prometheus
// metrics.
package blinkyd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/librescoot/fsmsnap"
	"github.com/librescoot/fsmsnap/examples/blinky"
	"github.com/librescoot/fsmsnap/internal/config"
	"github.com/librescoot/fsmsnap/snapshot"
	"github.com/librescoot/fsmsnap/snapshot/promsnap"
)

// Config is read from the environment.
type Config struct {
	Period      time.Duration `env:"BLINKY_PERIOD" envDefault:"500ms"`
	MetricsAddr string        `env:"BLINKY_METRICS_ADDR" envDefault:":9100"`
	LogLevel    string        `env:"BLINKY_LOG_LEVEL" envDefault:"info"`
}

// LoadConfig parses and validates the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Period <= 0 {
		return Config{}, errors.New("period must be greater than zero")
	}
	if _, err := config.ParseLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run blinks until ctx is cancelled. When ready is not nil it receives the
// metrics listener address (empty when metrics are disabled) once the
// machine is running.
func Run(ctx context.Context, cfg Config, logger *slog.Logger, ready chan<- string) error {
	if logger == nil {
		logger = slog.Default()
	}

	m, err := blinky.New(cfg.Period, fsmsnap.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build blinky: %w", err)
	}

	var ln net.Listener
	if cfg.MetricsAddr != "" {
		ln, err = net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.MetricsAddr, err)
		}
	}
	return serve(ctx, m, ln, logger, ready)
}

// serve runs m and, when ln is not nil, the metrics endpoint on ln. The
// server is shut down on every return path.
func serve(ctx context.Context, m *fsmsnap.Machine, ln net.Listener, logger *slog.Logger, ready chan<- string) error {
	m.OnStateChange(func(from, to fsmsnap.StateID) {
		logger.Info("state changed", "from", from, "to", to,
			blinky.BlinkySnapshot.Attr("snapshot", blinky.BlinkyCurrentStateView(m)))
	})

	var srv *http.Server
	addr := ""
	if ln != nil {
		reg := prometheus.NewRegistry()
		collector := promsnap.NewCollector("blinky")
		if err := promsnap.Register(collector, blinky.BlinkySnapshot, snapshot.Querier[fsmsnap.StateID](m)); err != nil {
			ln.Close()
			return err
		}
		reg.MustRegister(collector)

		addr = ln.Addr().String()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	if err := m.Start(ctx); err != nil {
		if shutdownErr := shutdown(srv); shutdownErr != nil {
			logger.Error("shutdown metrics server", "error", shutdownErr)
		}
		return fmt.Errorf("start blinky: %w", err)
	}
	if ready != nil {
		ready <- addr
	}

	<-ctx.Done()
	m.Stop()

	if err := shutdown(srv); err != nil {
		return err
	}
	logger.Info("blinky stopped", blinky.BlinkySnapshot.Attr("snapshot", blinky.BlinkyCurrentStateView(m)))
	return nil
}

func shutdown(srv *http.Server) error {
	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

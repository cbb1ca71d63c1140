package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/autopost"
	"github.com/erpledger/erpledger/internal/config"
	"github.com/erpledger/erpledger/internal/events"
	"github.com/erpledger/erpledger/internal/metrics"
)

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Post journal entries for inventory movements",
		Long: `Consume inventory movement messages from the broker and post the
matching journal entries until interrupted. With --file, replay messages
from a file holding one JSON message per line instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				mapping, err := autopost.MappingFromConfig(a.cfg.Autopost)
				if err != nil {
					return err
				}
				h := autopost.NewHandler(a.poster, mapping, a.logger, a.metrics)

				if file != "" {
					return replayMovements(cmd, a, h, file)
				}
				return consumeMovements(cmd.Context(), a, h)
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "replay messages from a JSON-lines file")
	return cmd
}

func consumeMovements(ctx context.Context, a *app, h events.MovementHandler) error {
	if a.cfg.Events.AMQPURL == "" {
		return fmt.Errorf("events.amqp_url is not configured")
	}

	c, err := events.DialConsumer(a.cfg.Events.AMQPURL, a.cfg.Events.Exchange, a.cfg.Autopost.Queue, a.tenant, h, a.logger)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if srv := newMetricsServer(a.cfg.Metrics, a.registry); srv != nil {
		go func() {
			a.logger.Info("prometheus metrics available", zap.String("addr", srv.Addr), zap.String("path", a.cfg.Metrics.Path))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server failure", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("shutting down metrics server", zap.Error(err))
			}
		}()
	}

	a.logger.Info("consuming inventory movements", zap.String("queue", a.cfg.Autopost.Queue))
	return c.Run(ctx)
}

// newMetricsServer returns the Prometheus endpoint for cfg, or nil when no
// listen address is configured.
func newMetricsServer(cfg config.MetricsConfig, g prometheus.Gatherer) *http.Server {
	if cfg.ListenAddr == "" {
		return nil
	}
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler(g))
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func replayMovements(cmd *cobra.Command, a *app, h *autopost.Handler, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return replay(cmd.Context(), cmd.OutOrStdout(), f, a.tenant, h)
}

func replay(ctx context.Context, out io.Writer, r io.Reader, tenant string, h *autopost.Handler) error {
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		if len(sc.Bytes()) == 0 {
			continue
		}
		tenantID, m, ok, err := events.DecodeMovement(sc.Bytes(), tenant)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if !ok {
			continue
		}
		entry, err := h.Post(ctx, tenantID, m)
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if entry != nil {
			debit, _ := entry.Totals()
			fmt.Fprintf(out, "Posted %s for %s %s (%s)\n", entry.Number, m.Type, m.RefID, money(debit))
		}
	}
	return sc.Err()
}

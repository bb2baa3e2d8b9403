// Command broker runs the data-plane process: log directory,
// idempotency cache, and the Produce/Fetch RPC service (spec §2, §4.4).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CefBoud/corelog/broker"
	"github.com/CefBoud/corelog/config"
	"github.com/CefBoud/corelog/idempotency"
	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/metrics"
	"github.com/CefBoud/corelog/rpcserver"
	"github.com/CefBoud/corelog/storage"
	"github.com/CefBoud/corelog/types"
	"github.com/CefBoud/corelog/utils"
)

var (
	configPath string
	logLevel   string
)

func main() {
	cmd := &cobra.Command{
		Use:   "broker",
		Short: "Run the commit log broker",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML broker config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "overrides the config file's log_level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadBroker(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.SetLogLevel(cfg.LogLevel)

	flushPolicy := types.ParseFlushPolicy(cfg.FlushPolicy)
	logDir := cfg.LogDir
	if logDir == "" {
		logDir = "./data/broker"
	}
	if err := utils.EnsurePath(logDir, true); err != nil {
		return fmt.Errorf("preparing log dir: %w", err)
	}

	ld, err := storage.Open(logDir, cfg.MaxSegmentSizeBytes, flushPolicy, utils.NowAsUnixMilli)
	if err != nil {
		return fmt.Errorf("opening log dir: %w", err)
	}

	cache, err := idempotency.NewBoundedCache(100_000, 10*time.Minute, nil)
	if err != nil {
		return fmt.Errorf("creating idempotency cache: %w", err)
	}

	reg := metrics.New("broker")
	b := broker.New(ld, cache, reg, utils.NowAsUnixMilli)

	srv := rpcserver.New()
	if err := srv.Register("BrokerService", &rpcserver.BrokerService{Broker: b}); err != nil {
		return fmt.Errorf("registering broker service: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if err := srv.Bind(addr); err != nil {
		return fmt.Errorf("binding %v: %w", addr, err)
	}
	srv.Start()
	logging.Info("broker %d listening on %v, log dir %v", cfg.ID, addr, logDir)

	healthz := startHealthz(cfg.Port + 1000)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info("broker shutting down")
	if err := srv.Stop(); err != nil {
		logging.Warn("rpc server stop: %v", err)
	}
	srv.Wait()
	if err := healthz.Shutdown(context.Background()); err != nil {
		logging.Warn("healthz shutdown: %v", err)
	}
	if err := ld.Close(); err != nil {
		logging.Warn("log dir close: %v", err)
	}
	logging.Info("broker shutdown complete")
	return nil
}

func startHealthz(port uint32) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn("healthz server: %v", err)
		}
	}()
	return srv
}

// Command controller runs the thin in-memory topic metadata registry
// (spec §2, §4.6).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CefBoud/corelog/config"
	"github.com/CefBoud/corelog/controller"
	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/rpcserver"
)

var (
	configPath string
	logLevel   string
	brokerIDs  []int
)

func main() {
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Run the topic metadata controller",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML controller config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "overrides the config file's log_level")
	cmd.Flags().IntSliceVar(&brokerIDs, "broker-ids", []int{1}, "broker ids for round-robin partition assignment")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadController(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.SetLogLevel(cfg.LogLevel)

	brokers := make([]uint32, len(brokerIDs))
	for i, id := range brokerIDs {
		brokers[i] = uint32(id)
	}
	reg := controller.New(brokers)

	srv := rpcserver.New()
	if err := srv.Register("ControllerService", &rpcserver.ControllerService{Registry: reg}); err != nil {
		return fmt.Errorf("registering controller service: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if err := srv.Bind(addr); err != nil {
		return fmt.Errorf("binding %v: %w", addr, err)
	}
	srv.Start()
	logging.Info("controller %d listening on %v", cfg.ID, addr)

	healthz := startHealthz(cfg.Port + 1000)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info("controller shutting down")
	if err := srv.Stop(); err != nil {
		logging.Warn("rpc server stop: %v", err)
	}
	srv.Wait()
	if err := healthz.Shutdown(context.Background()); err != nil {
		logging.Warn("healthz shutdown: %v", err)
	}
	logging.Info("controller shutdown complete")
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

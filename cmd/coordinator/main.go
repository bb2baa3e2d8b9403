// Command coordinator runs consumer group membership, heartbeats, and
// durable offset commits (spec §2, §4.5).
package main

import (
	"context"
	"fmt"
	"net/http"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/CefBoud/corelog/config"
	"github.com/CefBoud/corelog/coordinator"
	"github.com/CefBoud/corelog/logging"
	"github.com/CefBoud/corelog/metrics"
	"github.com/CefBoud/corelog/rpcserver"
	"github.com/CefBoud/corelog/types"
)

var (
	configPath string
	logLevel   string
)

func main() {
	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Run the consumer group coordinator",
		RunE:  run,
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML coordinator config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "overrides the config file's log_level")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(_ *cobra.Command, _ []string) error {
	cfg, err := config.LoadCoordinator(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logging.SetLogLevel(cfg.LogLevel)

	offsetPath := cfg.OffsetStoragePath
	if offsetPath == "" {
		offsetPath = "./data/coordinator/offsets.db"
	}

	opts := []coordinator.Option{coordinator.WithMetrics(metrics.New("coordinator"))}
	if cfg.ControllerAddr != "" {
		opts = append(opts, coordinator.WithPartitionCounter(controllerPartitionCounter(cfg.ControllerAddr)))
	}

	co, err := coordinator.New(offsetPath,
		time.Duration(cfg.HeartbeatIntervalMs)*time.Millisecond,
		time.Duration(cfg.SessionTimeoutMs)*time.Millisecond,
		opts...)
	if err != nil {
		return fmt.Errorf("opening coordinator: %w", err)
	}

	srv := rpcserver.New()
	if err := srv.Register("CoordinatorService", &rpcserver.CoordinatorService{Coordinator: co}); err != nil {
		return fmt.Errorf("registering coordinator service: %w", err)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if err := srv.Bind(addr); err != nil {
		return fmt.Errorf("binding %v: %w", addr, err)
	}
	srv.Start()
	logging.Info("coordinator %d listening on %v, offsets at %v", cfg.ID, addr, offsetPath)

	healthz := startHealthz(cfg.Port + 1000)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	go co.RunCleanupSweep(sweepCtx, 30*time.Second)

	<-ctx.Done()

	logging.Info("coordinator shutting down")
	cancelSweep()
	if err := srv.Stop(); err != nil {
		logging.Warn("rpc server stop: %v", err)
	}
	srv.Wait()
	if err := healthz.Shutdown(context.Background()); err != nil {
		logging.Warn("healthz shutdown: %v", err)
	}
	if err := co.Close(); err != nil {
		logging.Warn("coordinator close: %v", err)
	}
	logging.Info("coordinator shutdown complete")
	return nil
}

// controllerPartitionCounter dials a controller's ControllerService over
// net/rpc on demand and asks it for a topic's partition count, per
// spec §4.5's "production implementations MUST consult the controller's
// metadata". A dial or call failure falls back to the coordinator's
// built-in placeholder rather than blocking group operations.
func controllerPartitionCounter(addr string) coordinator.PartitionCounter {
	return func(topic string) int32 {
		client, err := rpc.Dial("tcp", addr)
		if err != nil {
			logging.Warn("dialing controller at %v: %v", addr, err)
			return 0
		}
		defer client.Close()

		var resp types.DescribeTopicResponse
		err = client.Call("ControllerService.DescribeTopic", &types.DescribeTopicRequest{Name: topic}, &resp)
		if err != nil {
			logging.Warn("describing topic %v via controller: %v", topic, err)
			return 0
		}
		return resp.Metadata.Partitions
	}
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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshekharsharma/constdb/internal/config"
	"github.com/cshekharsharma/constdb/internal/identity"
	"github.com/cshekharsharma/constdb/internal/logging"
	"github.com/cshekharsharma/constdb/internal/replica"
	"github.com/cshekharsharma/constdb/internal/repllog"
	"github.com/cshekharsharma/constdb/internal/server"
	"github.com/cshekharsharma/constdb/internal/store"
	"github.com/cshekharsharma/constdb/internal/telemetry"
	"github.com/cshekharsharma/constdb/internal/uuidgen"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:   "constdbd",
		Short: "constdb replicated key-value daemon",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "constdb.yaml", "Path to the node's YAML config file")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(serveCmd(&configPath), versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon: accept client connections and replicate with peers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ids, err := identity.Open(cfg.IdentityPath)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer ids.Close()

	saved, err := ids.Load()
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	nodeID := cfg.NodeID
	if nodeID == 0 {
		nodeID = saved.NodeID
	}
	alias := cfg.NodeAlias
	if alias == "" {
		alias = saved.Alias
	}
	if alias == "" {
		alias = "node-" + uuid.New().String()[:8]
	}

	st := store.New()
	sink, reg := telemetry.New()
	srv := server.New(st, repllog.New(cfg.ReplLogSize), replica.NewRegistry(),
		uuidgen.NewWithHighWaterMark(saved.HighWaterMark), ids, sink, nil)
	srv.RestoreIdentity(identity.Identity{NodeID: nodeID, Alias: alias, HighWaterMark: saved.HighWaterMark})
	srv.SetRootContext(ctx)

	if err := srv.LoadSnapshotFile(cfg.SnapshotPath); err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	addr := net.JoinHostPort(cfg.IP, fmt.Sprintf("%d", cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	slog.Info("constdbd listening", "addr", addr, "node_id", srv.NodeID(), "node_alias", srv.NodeAlias())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: net.JoinHostPort(cfg.IP, fmt.Sprintf("%d", cfg.Port+1)), Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("metrics server stopped", "err", err)
		}
	}()

	for _, peer := range cfg.Peers {
		go srv.SuperviseMeet(ctx, peer)
	}

	gaugeTicker := time.NewTicker(10 * time.Second)
	defer gaugeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			ln.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = metricsSrv.Shutdown(shutdownCtx)
			cancel()
			if err := srv.SaveSnapshotFile(cfg.SnapshotPath); err != nil {
				slog.Error("save snapshot on shutdown", "err", err)
			}
			return nil
		case err := <-serveErr:
			return err
		case <-gaugeTicker.C:
			srv.PublishGauges()
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gorilla/mux"
	ds "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	badgerds "github.com/ipfs/go-ds-badger4"
	logging "github.com/ipfs/go-log/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/codelaboratoryltd/netfab/internal/api"
	"github.com/codelaboratoryltd/netfab/internal/audit"
	"github.com/codelaboratoryltd/netfab/internal/metrics"
	"github.com/codelaboratoryltd/netfab/internal/pathfind"
	"github.com/codelaboratoryltd/netfab/internal/provision"
	"github.com/codelaboratoryltd/netfab/internal/rules"
	"github.com/codelaboratoryltd/netfab/internal/store"
)

var (
	// Build info (set at compile time)
	BuildVersion = "dev"
	BuildCommit  = "unknown"
)

// Config holds server configuration
type Config struct {
	ServerID    string
	HTTPPort    int
	MetricsPort int
	DataPath    string
	LogLevel    string

	// Path search cost weights
	LatencyWeight     float64
	UtilizationWeight float64
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var cfg Config

	root := &cobra.Command{
		Use:   "netfabd",
		Short: "netfab - provisioning core for telecom transport networks",
		Long: `netfab models a capacity-bounded network topology and provisions
end-to-end services over it:
  - Device and link inventory with per-resource capacity tracking
  - Constrained path search (bandwidth filters, latency/utilization cost)
  - Rule-based service validation
  - Atomic path-wide capacity reservation`,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the netfab server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Allow environment variables to override flags
			if v := os.Getenv("NETFAB_DATA_PATH"); v != "" && cfg.DataPath == "" {
				cfg.DataPath = v
			}
			if v := os.Getenv("NETFAB_SERVER_ID"); v != "" && cfg.ServerID == "" {
				cfg.ServerID = v
			}
			return runServer(cfg)
		},
	}

	serve.Flags().StringVar(&cfg.ServerID, "server-id", "", "Server identifier for audit logs (hostname if empty)")
	serve.Flags().IntVar(&cfg.HTTPPort, "http-port", 9000, "HTTP API port")
	serve.Flags().IntVar(&cfg.MetricsPort, "metrics-port", 9002, "Prometheus metrics port")
	serve.Flags().StringVar(&cfg.DataPath, "data-path", "", "Data directory path (in-memory if empty)")
	serve.Flags().StringVar(&cfg.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	serve.Flags().Float64Var(&cfg.LatencyWeight, "latency-weight", 1.0, "Path cost weight for link latency")
	serve.Flags().Float64Var(&cfg.UtilizationWeight, "utilization-weight", 1.0, "Path cost weight for link utilization")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("netfab %s (%s)\n", BuildVersion, BuildCommit)
		},
	}

	root.AddCommand(serve, version)
	return root
}

func runServer(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := logging.SetLogLevel("*", cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if cfg.ServerID == "" {
		cfg.ServerID, _ = os.Hostname()
	}

	fmt.Printf("Starting netfab %s (%s)\n", BuildVersion, BuildCommit)
	fmt.Printf("  HTTP:     http://localhost:%d\n", cfg.HTTPPort)
	fmt.Printf("  Metrics:  http://localhost:%d/metrics\n", cfg.MetricsPort)

	var datastore ds.Datastore
	if cfg.DataPath != "" {
		fmt.Printf("  Data:     %s\n", cfg.DataPath)

		if err := os.MkdirAll(cfg.DataPath, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		opts := badgerds.DefaultOptions
		opts.Options = badger.DefaultOptions(cfg.DataPath).WithLogger(nil)
		bds, err := badgerds.NewDatastore(cfg.DataPath, &opts)
		if err != nil {
			return fmt.Errorf("failed to create badger datastore: %w", err)
		}
		defer bds.Close()
		datastore = bds
	} else {
		fmt.Println("  Data:     in-memory (state is lost on exit)")
		datastore = dssync.MutexWrap(ds.NewMapDatastore())
	}

	deviceStore := store.NewDeviceStore(datastore, store.DeviceKey)
	linkStore := store.NewLinkStore(datastore, store.LinkKey)
	serviceStore := store.NewServiceStore(datastore, store.ServiceKey)

	graph, err := store.LoadTopology(ctx, deviceStore, linkStore, serviceStore)
	if err != nil {
		return fmt.Errorf("failed to load topology: %w", err)
	}

	finder := pathfind.NewFinder(pathfind.Weights{
		Latency:     cfg.LatencyWeight,
		Utilization: cfg.UtilizationWeight,
	})

	engine, err := rules.NewEngine(rules.Defaults()...)
	if err != nil {
		return fmt.Errorf("failed to create rule engine: %w", err)
	}

	recorder := metrics.NewRecorder(datastore, store.MetricKey)

	auditCfg := audit.DefaultConfig()
	auditCfg.ServerID = cfg.ServerID
	auditLogger := audit.NewLogger(auditCfg)
	if err := auditLogger.Start(); err != nil {
		return fmt.Errorf("failed to start audit logger: %w", err)
	}
	defer auditLogger.Stop()

	coordinator := provision.NewCoordinator(graph, finder, engine, serviceStore, recorder)

	// Create API server
	apiServer := api.NewServer(graph, coordinator, engine, deviceStore, linkStore, recorder, auditLogger)

	// Create HTTP router
	router := mux.NewRouter()
	apiServer.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router,
	}

	// Start metrics server
	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: metricsRouter,
	}

	// Start servers in goroutines
	errCh := make(chan error, 2)

	go func() {
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	go func() {
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	fmt.Println("netfab ready!")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		fmt.Printf("\nReceived signal %v, shutting down...\n", sig)
	case err := <-errCh:
		fmt.Printf("Server error: %v\n", err)
	case <-ctx.Done():
	}

	// Shutdown HTTP servers
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	httpServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)

	fmt.Println("netfab stopped")
	return nil
}

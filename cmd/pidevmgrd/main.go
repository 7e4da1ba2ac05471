package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p4lang/pi4go/internal/config"
	"github.com/p4lang/pi4go/internal/devicemgr"
	"github.com/p4lang/pi4go/internal/logger"
	"github.com/p4lang/pi4go/internal/metrics"
	"github.com/p4lang/pi4go/internal/pisim"
	"github.com/p4lang/pi4go/internal/telemetry"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/packetio"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `pidevmgrd - P4Runtime-style control-plane device manager

Usage:
  pidevmgrd <command> [flags]

Commands:
  init     Write a sample configuration file
  serve    Start DeviceMgr instances against the in-memory simulator
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/pi4go/config.yaml)

Environment Variables:
  Options present in the config file can be overridden using environment
  variables. When no config file is found, the defaults are used and
  environment variables are not read.
  Format: PI4GO_<SECTION>_<KEY> (use underscores for nested keys)

  Example:
    PI4GO_LOGGING_LEVEL=DEBUG pidevmgrd serve
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit()
	case "serve":
		runServe()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("pidevmgrd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/pi4go/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")
	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	path := *configFile
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	if !*force {
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("config file already exists at %s (use --force to overwrite)", path)
		}
	}
	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		log.Fatalf("failed to write configuration: %v", err)
	}
	fmt.Printf("Configuration file created at: %s\n", path)
}

// discardSender drops every PacketOut; the simulator has no data plane to
// deliver packets to.
type discardSender struct{}

func (discardSender) Send(context.Context, p4rt.PacketOut) error { return nil }

func runServe() {
	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := serveFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/pi4go/config.yaml)")
	if err := serveFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "pidevmgrd",
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    cfg.Telemetry.Profiling.ApplicationName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   []string{"cpu", "alloc_objects"},
	})
	if err != nil {
		log.Fatalf("failed to initialize profiling: %v", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	logger.Info("pidevmgrd starting", "version", version, "devices", len(cfg.Devices))

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		registry := metrics.Init()
		router := chi.NewRouter()
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: router}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", logger.KeyError, err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	driver := pisim.New()
	managers := make(map[uint64]*devicemgr.Manager, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		pio := packetio.New(discardSender{})
		mgr := devicemgr.New(dc.DeviceID, driver, pio)
		managers[dc.DeviceID] = mgr
		logger.Info("device manager ready", logger.KeyDeviceID, dc.DeviceID, "pipe_count", dc.PipeCount)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("pidevmgrd is running. Press Ctrl+C to stop.")
	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received")

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown error", logger.KeyError, err)
		}
	}
	cancel()
	logger.Info("pidevmgrd stopped")
}

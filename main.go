package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vehicle-visualizer/marker"
)

var (
	configPath      = flag.String("config", "", "Path to YAML configuration file")
	httpPort        = flag.Int("port", 8080, "HTTP port")
	shutdownTimeout = flag.Duration("shutdown_timeout", 10*time.Second, "HTTP server shutdown timeout")
	gtfsrtURL       = flag.String("gtfsrt_url", "", "GTFS-RT vehicle positions URL (protobuf)")
	siriXmlURL      = flag.String("siri_xml_url", "", "SIRI VehicleMonitoring XML URL")
	siriJsonURL     = flag.String("siri_json_url", "", "SIRI VehicleMonitoring JSON URL")
	refreshMinSecs  = flag.Int("refresh_min_secs", 10, "Minimum refresh interval in seconds")
	udpPort         = flag.Int("udp_port", 48110, "UDP port for S-LDM update lines (0 disables)")
	logLevel        = flag.String("log_level", "info", "Log level (debug, info, warn, error)")
)

// lineBuffer bounds how far producers may run ahead of the session.
const lineBuffer = 1024

func main() {
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlags(&cfg)
	if err := cfg.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := setupLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// applyFlags overrides the loaded configuration with flags set on the
// command line.
func applyFlags(cfg *Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *httpPort
		case "shutdown_timeout":
			cfg.Server.ShutdownTimeout = *shutdownTimeout
		case "gtfsrt_url":
			cfg.Feed.GTFSRTURL = *gtfsrtURL
		case "siri_xml_url":
			cfg.Feed.SiriXMLURL = *siriXmlURL
		case "siri_json_url":
			cfg.Feed.SiriJSONURL = *siriJsonURL
		case "refresh_min_secs":
			cfg.Feed.RefreshMinSecs = *refreshMinSecs
		case "udp_port":
			cfg.UDP.Port = *udpPort
			cfg.UDP.Enabled = *udpPort != 0
		case "log_level":
			cfg.Log.Level = *logLevel
		}
	})
}

func run(cfg Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := newHub(logger)
	sess := marker.NewSession(newWSSurface(hub),
		marker.WithLogger(logger),
		marker.WithMetrics(marker.NewMetrics(reg)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, lineBuffer)

	var rel *relay
	var taps []func(string)
	if cfg.Relay.SocketIO {
		rel = newRelay(logger)
		go rel.run(ctx)
		taps = append(taps, rel.forward)
	}
	go pump(ctx, lines, sess, taps...)

	if cfg.UDP.Enabled {
		udp, err := listenUDP(cfg.UDP.Bind, cfg.UDP.Port, lines, logger, reg)
		if err != nil {
			return err
		}
		go udp.run(ctx)
	}

	if feed := selectFeed(cfg.Feed); feed != nil {
		poll := newPoller(feed, cfg, lines, logger, reg)
		go poll.run(ctx)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, hub, rel, reg, cfg.Server.StaticDir, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "url", fmt.Sprintf("http://localhost:%d/", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigs:
		logger.Info("shutdown initiated")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}
	logger.Info("HTTP server shut down successfully")
	return nil
}

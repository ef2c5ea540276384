package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/AltairaLabs/lead-oversight/internal/claims"
	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/coordinator"
	"github.com/AltairaLabs/lead-oversight/internal/countdown"
	"github.com/AltairaLabs/lead-oversight/internal/dashboard"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/notify"
	"github.com/AltairaLabs/lead-oversight/internal/priority"
	"github.com/AltairaLabs/lead-oversight/internal/prompts"
	"github.com/AltairaLabs/lead-oversight/internal/roster"
	"github.com/AltairaLabs/lead-oversight/internal/scheduler"
	"github.com/AltairaLabs/lead-oversight/internal/session"
	"github.com/AltairaLabs/lead-oversight/internal/storage"
	"github.com/AltairaLabs/lead-oversight/internal/storage/memory"
	"github.com/AltairaLabs/lead-oversight/internal/storage/sqlite"
)

const (
	appVersion      = "0.1.0"
	defaultGRPCPort = "50050"
	defaultHTTPPort = "8080"
	shutdownTimeout = 2 * time.Second

	// health service names reported on the gRPC listener
	healthScheduler = "oversight.scheduler"
	healthMCP       = "oversight.mcp"
)

var (
	version  = flag.Bool("version", false, "Print version and exit")
	debug    = flag.Bool("debug", false, "Enable debug logging")
	httpMode = flag.Bool("http", false, "Enable HTTP/SSE transport instead of stdio")
)

// options are the resolved startup settings
type options struct {
	ConfigPath string
	DBPath     string
	RosterPath string
	AlertsPath string
	GRPCPort   string
	HTTPPort   string
	HTTPMode   bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func optionsFromEnv(httpMode bool) options {
	return options{
		ConfigPath: os.Getenv("OVERSIGHT_CONFIG"),
		DBPath:     os.Getenv("OVERSIGHT_DB"),
		RosterPath: os.Getenv("OVERSIGHT_ROSTER"),
		AlertsPath: os.Getenv("OVERSIGHT_ALERTS"),
		GRPCPort:   envOr("GRPC_PORT", defaultGRPCPort),
		HTTPPort:   envOr("HTTP_PORT", defaultHTTPPort),
		HTTPMode:   httpMode,
	}
}

// app is the wired daemon
type app struct {
	opts      options
	logger    *slog.Logger
	cfg       config.Config
	store     storage.Store
	alerts    *os.File
	delivery  *notify.Queue
	sessions  *session.Manager
	scheduler *scheduler.Scheduler
	mcp       *coordinator.MCPServer
	health    *health.Server
}

func newApp(ctx context.Context, opts options, logger *slog.Logger) (*app, error) {
	if opts.RosterPath == "" {
		return nil, errors.New("OVERSIGHT_ROSTER is required")
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	src, err := roster.NewFileSource(opts.RosterPath)
	if err != nil {
		return nil, err
	}

	a := &app{opts: opts, logger: logger, cfg: cfg}

	if opts.DBPath != "" {
		store, err := sqlite.New(opts.DBPath)
		if err != nil {
			return nil, err
		}
		a.store = store
	} else {
		a.store = memory.NewStore()
	}

	notifiers := notify.Fanout{notify.NewLogNotifier(logger)}
	if opts.AlertsPath != "" {
		f, err := os.OpenFile(opts.AlertsPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open alerts file: %w", err)
		}
		a.alerts = f
		a.delivery = notify.NewQueue(notify.NewStreamNotifier(f), cfg.Delivery, logger)
		notifiers = append(notifiers, a.delivery)
	}

	prox, err := geo.NewClassifier(cfg.Proximity)
	if err != nil {
		a.Close()
		return nil, err
	}
	prio := priority.NewClassifier(cfg.Priority)
	timers := countdown.NewTimers(cfg.Timers)

	claimManager := claims.NewManager(a.store, prox, cfg.Claims, logger,
		claims.WithRouteTracker(timers),
		claims.WithTimerClearer(timers),
		claims.WithAlertSink(notifiers),
	)
	a.sessions = session.NewManager(a.store, claimManager, timers, src, cfg.Prompts, logger)

	saved, err := a.store.LoadTimers(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load timers: %w", err)
	}
	if err := a.sessions.Recover(ctx, saved); err != nil {
		a.Close()
		return nil, err
	}

	a.scheduler = scheduler.NewScheduler(a.sessions, timers, notifiers, a.store, cfg.Scheduler, logger)
	a.mcp = coordinator.NewMCPServer(coordinator.Config{
		Name:    "lead-oversight",
		Version: appVersion,
	}, coordinator.Deps{
		Roster:    src,
		Claims:    claimManager,
		Sessions:  a.sessions,
		Timers:    timers,
		Dashboard: dashboard.NewComposer(prox, prio, prompts.NewAggregator(cfg.Prompts)),
		Proximity: prox,
		Priority:  prio,
	}, coordinator.NewAuditLogger(logger))

	a.health = health.NewServer()
	a.health.SetServingStatus(healthScheduler, healthpb.HealthCheckResponse_NOT_SERVING)
	a.health.SetServingStatus(healthMCP, healthpb.HealthCheckResponse_NOT_SERVING)

	return a, nil
}

// Close releases the store and flushes queued alerts before closing the alerts file
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close store", "error", err)
		}
	}
	if a.delivery != nil {
		a.delivery.Flush(context.Background())
	}
	if a.alerts != nil {
		if err := a.alerts.Close(); err != nil {
			a.logger.Error("Failed to close alerts file", "error", err)
		}
	}
}

// run serves until ctx is canceled or a component fails
func (a *app) run(ctx context.Context) error {
	listenConfig := net.ListenConfig{}
	lis, err := listenConfig.Listen(ctx, "tcp", fmt.Sprintf(":%s", a.opts.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", a.opts.GRPCPort, err)
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, a.health)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting gRPC health server", "port", a.opts.GRPCPort)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		a.health.SetServingStatus(healthScheduler, healthpb.HealthCheckResponse_SERVING)
		a.scheduler.Start(gctx)
		a.health.SetServingStatus(healthScheduler, healthpb.HealthCheckResponse_NOT_SERVING)
		return nil
	})

	if a.delivery != nil {
		g.Go(func() error {
			a.delivery.Start(gctx)
			return nil
		})
	}

	if a.opts.HTTPMode {
		addr := ":" + a.opts.HTTPPort
		sse := a.mcp.NewSSEServer(addr)
		g.Go(func() error {
			a.logger.Info("Starting MCP server with HTTP/SSE transport", "address", addr, "base_path", "/mcp")
			a.health.SetServingStatus(healthMCP, healthpb.HealthCheckResponse_SERVING)
			if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("MCP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return sse.Shutdown(shutdownCtx)
		})
	} else {
		// stdio has no cancellation; a closed stdin ends the daemon
		stdioDone := make(chan error, 1)
		go func() {
			a.health.SetServingStatus(healthMCP, healthpb.HealthCheckResponse_SERVING)
			stdioDone <- a.mcp.ServeWithLogger(a.logger)
		}()
		g.Go(func() error {
			select {
			case err := <-stdioDone:
				if err != nil {
					return fmt.Errorf("MCP server error: %w", err)
				}
				return errors.New("MCP stdio transport closed")
			case <-gctx.Done():
				return nil
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.health.Shutdown()
		stopGRPC(grpcServer, a.logger)
		return nil
	})

	return g.Wait()
}

// stopGRPC stops gracefully, forcing a stop after shutdownTimeout
func stopGRPC(s *grpc.Server, logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("gRPC server stopped gracefully")
	case <-time.After(shutdownTimeout):
		logger.Warn("Graceful shutdown timeout, forcing stop")
		s.Stop()
		<-done
	}
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("Lead Oversight Daemon v%s\n", appVersion)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	opts := optionsFromEnv(*httpMode)
	logger.Info("Starting Lead Oversight Daemon",
		"version", appVersion,
		"debug", *debug,
		"grpc_port", opts.GRPCPort,
		"http_mode", opts.HTTPMode,
		"http_port", opts.HTTPPort,
		"roster", opts.RosterPath,
		"db", opts.DBPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, opts, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	if err := a.run(ctx); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("Daemon stopped with error", "error", err)
	}
	logger.Info("Daemon shutdown complete")
}

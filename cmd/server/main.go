package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/thanhnvbk92/machine-management-system-sub001/internal/config"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/handler"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/port"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/application/usecase"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/domain"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/infrastructure"
	transport "github.com/thanhnvbk92/machine-management-system-sub001/internal/modules/realtime/interface"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/platform/broker"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/platform/store"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/auth"
	"github.com/thanhnvbk92/machine-management-system-sub001/internal/shared/logging"
)

func main() {
	// Load .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	if err := run(cfg); err != nil {
		slog.Error("relay stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("relay stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Hubs and their send side
	hubs := transport.Hubs{}
	relays := make(map[string]*usecase.RelayUseCase, len(domain.Hubs()))
	for _, name := range domain.Hubs() {
		hub := infrastructure.NewHub(name,
			infrastructure.WithSendBuffer(cfg.Websocket.SendBuffer),
			infrastructure.WithInvocationRate(cfg.Websocket.InvocationRate, cfg.Websocket.InvocationBurst),
		)
		hubs[name] = hub
		relays[name] = usecase.NewRelayUseCase(name, hub.Registry(), hub)
	}
	alerts := usecase.NewAlertNotifier(relays[domain.HubNotification])
	router := usecase.NewIngestRouter(
		usecase.NewMachineNotifier(relays[domain.HubMachine]),
		usecase.NewLogNotifier(relays[domain.HubLog]).WithLogUpdates(relays[domain.HubMachine]),
		usecase.NewCommandNotifier(relays[domain.HubCommand]),
		alerts,
	)

	// Snapshot source
	source, closeSource, err := openSnapshotSource(cfg.Snapshot, router)
	if err != nil {
		return err
	}
	defer closeSource()
	snapshots := usecase.NewSnapshotUseCase(source, cfg.Snapshot.MaxAge)
	for _, hub := range hubs {
		transport.RegisterHubMethods(hub, snapshots)
	}

	// JWT checks are only enforced when a key is configured.
	validator, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("jwt validator: %w", err)
	}
	var tokenValidator auth.TokenValidator
	if validator.Enabled() {
		tokenValidator = validator
	} else {
		slog.Warn("jwt validation disabled: no secret or public key configured")
	}

	// Kafka topic handlers
	registry := infrastructure.NewHandlerRegistry()
	kafkaTopics := cfg.KafkaTopics()
	for _, topic := range kafkaTopics {
		registry.Register(handler.NewIngestStreamHandler(topic, cfg.Kafka.Topics[topic], nil, router))
	}
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", registry.Topics()))

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	transport.RegisterRoutes(e, hubs, router, tokenValidator, cfg.Security.IngestRole)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server starting", slog.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		for _, hub := range hubs {
			hub.Shutdown()
		}
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return broker.StartKafkaConsumers(gctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID, kafkaTopics)
	})
	if cfg.Publisher.Enabled {
		publisher := usecase.NewPeriodicPublisher(usecase.PublisherConfig{
			Interval:     cfg.Publisher.Interval,
			RetryBackoff: cfg.Publisher.RetryBackoff,
			FetchTimeout: cfg.Publisher.FetchTimeout,
		}, source, relays[domain.HubMachine], usecase.WithDashboardSink(alerts))
		g.Go(func() error { return publisher.Run(gctx) })
	}
	return g.Wait()
}

// openSnapshotSource builds the configured snapshot source. The SQLite store
// also records ingested events so its snapshots follow the live stream.
func openSnapshotSource(cfg config.SnapshotConfig, router *usecase.IngestRouter) (port.SnapshotSource, func(), error) {
	switch cfg.Source {
	case config.SnapshotSourceSQLite:
		st, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot store: %w", err)
		}
		router.WithRecorder(st)
		slog.Info("snapshot source ready", slog.String("source", cfg.Source), slog.String("path", cfg.SQLitePath))
		return st, func() { _ = st.Close() }, nil
	default:
		client := infrastructure.NewSnapshotHTTPClient(cfg.BaseURL, cfg.Token, cfg.Timeout, nil)
		slog.Info("snapshot source ready", slog.String("source", cfg.Source), slog.String("baseUrl", cfg.BaseURL))
		return client, func() {}, nil
	}
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	file, err := logging.OpenDailyFile(cfg.Directory, time.Now())
	if err != nil {
		return nil, nil, err
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}

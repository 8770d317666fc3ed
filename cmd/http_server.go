package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/auth"
	"github.com/frahmantamala/civic-complaints/internal/category"
	"github.com/frahmantamala/civic-complaints/internal/complaint"
	"github.com/frahmantamala/civic-complaints/internal/core/events"
	"github.com/frahmantamala/civic-complaints/internal/notify"
	"github.com/frahmantamala/civic-complaints/internal/timeline"
	"github.com/frahmantamala/civic-complaints/internal/transport"
	"github.com/frahmantamala/civic-complaints/internal/transport/rest"
	"github.com/frahmantamala/civic-complaints/internal/transport/swagger"
	"github.com/frahmantamala/civic-complaints/internal/upload"
	"github.com/frahmantamala/civic-complaints/internal/user"
	"github.com/frahmantamala/civic-complaints/pkg/logger"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *gorm.DB
	Redis      *redis.Client
	EventBus   *events.EventBus
	Dispatcher *notify.Dispatcher
	Router     *chi.Mux
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("Starting HTTP server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		deps.Logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Logger.Error("Server stopped with error", "error", err)
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

func (d *Dependencies) close() {
	d.EventBus.Wait()
	if d.Dispatcher != nil {
		d.Dispatcher.Shutdown()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
	closeDB(d.DB, d.Logger)
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	cfg := mustLoadConfig()
	lg := logger.L()

	db, err := initDB(cfg.Database, lg)
	if err != nil {
		return nil, err
	}

	var (
		rdb        *redis.Client
		dispatcher *notify.Dispatcher
	)
	fail := func(err error) (*Dependencies, error) {
		if dispatcher != nil {
			dispatcher.Shutdown()
		}
		if rdb != nil {
			_ = rdb.Close()
		}
		closeDB(db, lg)
		return nil, err
	}

	rdb, err = initRedis(ctx, cfg.Redis)
	if err != nil {
		return fail(err)
	}

	seq, err := newSequencer(cfg.Identifier, rdb)
	if err != nil {
		return fail(err)
	}

	bus := events.NewEventBus(lg)
	dispatcher, err = newDispatcher(cfg, rdb, lg)
	if err != nil {
		return fail(err)
	}
	if dispatcher != nil {
		dispatcher.Subscribe(bus)
	}

	svc, err := buildServices(cfg, db, seq, bus, lg)
	if err != nil {
		return fail(err)
	}

	images, err := upload.NewStore(cfg.Upload, lg)
	if err != nil {
		return fail(fmt.Errorf("failed to prepare upload dir: %w", err))
	}

	doc, err := swagger.Load(ctx, cfg.Server.OpenAPIPath)
	if err != nil {
		return fail(err)
	}
	lg.Info("openapi document loaded", "paths", doc.PathCount())

	sqlDB, err := db.DB()
	if err != nil {
		return fail(err)
	}
	health := rest.NewHealthHandler().Register("database", rest.DatabaseCheck(sqlDB))
	if rdb != nil {
		health.Register("redis", rest.RedisCheck(rdb))
	}

	base := transport.NewBaseHandler(lg)
	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		Health:         health,
		Auth:           auth.NewHandler(base, svc.Auth),
		User:           user.NewHandler(base, svc.Users),
		Category:       category.NewHandler(base, svc.Categories),
		Complaint:      complaint.NewHandler(base, svc.Complaints, images),
		Timeline:       timeline.NewHandler(base, svc.Timeline),
		Resolver:       svc.Auth,
		AllowedOrigins: splitOrigins(cfg.Server.AllowedOrigins),
		OpenAPI:        doc,
		Swagger:        swagger.Handler(),
		UploadsPath:    images.PublicPath(),
		Uploads:        images.Handler(),
	}, lg)

	lg.Info("dependencies initialized",
		"driver", cfg.Database.Driver,
		"identifier_backend", cfg.Identifier.Backend,
		"enforce_transitions", cfg.Lifecycle.EnforceTransitions,
		"notifications", dispatcher != nil)

	return &Dependencies{
		Config:     cfg,
		DB:         db,
		Redis:      rdb,
		EventBus:   bus,
		Dispatcher: dispatcher,
		Router:     router,
		Logger:     lg,
	}, nil
}

// newDispatcher returns nil when notifications are disabled or no sink is configured.
func newDispatcher(cfg *internal.Config, rdb *redis.Client, lg *slog.Logger) (*notify.Dispatcher, error) {
	if !cfg.Notification.Enabled {
		return nil, nil
	}
	sinks, err := buildSinks(cfg.Notification, rdb, true)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		lg.Warn("notifications enabled but no sink configured")
		return nil, nil
	}
	return notify.NewDispatcher(notify.Config{
		MaxWorkers: cfg.Notification.MaxWorkers,
		QueueSize:  cfg.Notification.QueueSize,
		Timeout:    cfg.Notification.Timeout,
	}, sinks, lg), nil
}

// buildSinks creates every configured sink. The redis sink is left out when withRedis is false.
func buildSinks(cfg internal.NotificationConfig, rdb *redis.Client, withRedis bool) ([]notify.Sink, error) {
	var sinks []notify.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.WebhookURL, &http.Client{Timeout: cfg.Timeout}))
	}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	if withRedis && cfg.RedisChannel != "" && rdb != nil {
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.RedisChannel))
	}
	return sinks, nil
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

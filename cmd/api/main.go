package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-tourguide/internal/config"
	"backend-tourguide/internal/db"
	"backend-tourguide/internal/server"

	"cloud.google.com/go/firestore"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

// Resources are the connections opened at startup and closed on shutdown.
type Resources struct {
	Postgres  *pgxpool.Pool
	Redis     *redis.Client
	Firestore *firestore.Client
	Logger    *zap.Logger
}

type mainDeps struct {
	loadConfig       func() config.Config
	newLogger        func(config.Config) (*zap.Logger, error)
	connectPostgres  func(config.Config) (*pgxpool.Pool, error)
	connectRedis     func(config.Config) *redis.Client
	connectFirestore func(context.Context, config.Config) (*firestore.Client, error)
	notify           func(chan<- os.Signal, ...os.Signal)
	run              func(context.Context, config.Config, Resources, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:       config.Load,
		newLogger:        newLogger,
		connectPostgres:  db.ConnectPostgres,
		connectRedis:     db.ConnectRedis,
		connectFirestore: db.ConnectFirestore,
		notify:           signal.Notify,
		run:              Run,
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func realMain(deps mainDeps) {
	cfg := deps.loadConfig()

	log, err := deps.newLogger(cfg)
	if err != nil || log == nil {
		log = zap.NewNop()
	}
	defer func() { _ = log.Sync() }()

	res := Resources{Logger: log}

	if cfg.UsesFirestore() {
		fs, err := deps.connectFirestore(context.Background(), cfg)
		if err != nil {
			log.Error("firestore connection failed", zap.Error(err))
		}
		res.Firestore = fs
	} else {
		pg, err := deps.connectPostgres(cfg)
		if err != nil {
			log.Error("postgres connection failed", zap.Error(err))
		}
		res.Postgres = pg
	}

	res.Redis = deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, res, signals, nil); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, res Resources, signals <-chan os.Signal, listen ListenFunc) error {
	log := res.Logger
	if log == nil {
		log = zap.NewNop()
	}

	srv, err := server.NewServer(cfg, server.Deps{
		DB:        res.Postgres,
		Redis:     res.Redis,
		Firestore: res.Firestore,
		Logger:    log,
	})
	if err != nil {
		closeResources(res)
		return err
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()
	log.Info("tour api listening", zap.String("addr", cfg.ServerPort), zap.String("store", cfg.StoreBackend))

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Close()
			closeResources(res)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	// end open attempts before the stores they write to go away
	if err := srv.Close(); err != nil {
		log.Warn("stream hub close error", zap.Error(err))
	}
	closeResources(res)
	return nil
}

func closeResources(res Resources) {
	if res.Postgres != nil {
		res.Postgres.Close()
	}
	if res.Redis != nil {
		_ = res.Redis.Close()
	}
	if res.Firestore != nil {
		_ = res.Firestore.Close()
	}
}

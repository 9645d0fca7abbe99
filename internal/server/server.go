package server

import (
	"backend-tourguide/internal/auth"
	"backend-tourguide/internal/config"
	"backend-tourguide/internal/db"
	"backend-tourguide/internal/mountain"
	"backend-tourguide/internal/stream"
	"backend-tourguide/internal/tour"
	"backend-tourguide/internal/tourstore"
	"backend-tourguide/internal/tracking"

	"cloud.google.com/go/firestore"
	"github.com/benbjohnson/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the connections the server routes are built on. Any of them
// may be nil; routes backed by a missing connection fail per request.
type Deps struct {
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Firestore *firestore.Client
	Logger    *zap.Logger
	// Clock defaults to wall time.
	Clock clock.Clock
}

type Server struct {
	App       *fiber.App
	Cfg       config.Config
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Stream    *stream.Hub
	Mountains mountain.Catalog
	Tracking  *tracking.Service
	Registry  *prometheus.Registry
	Logger    *zap.Logger
}

func NewServer(cfg config.Config, deps Deps) (*Server, error) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       deps.DB,
		Redis:    deps.Redis,
		Stream:   stream.NewHub(deps.Redis, log.Named("stream")),
		Registry: prometheus.NewRegistry(),
		Logger:   log,
	}

	metrics := tour.NewMetrics()
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(s.Registry); err != nil {
		return nil, errors.Wrap(err, "register tour metrics")
	}

	var querier db.Querier
	if deps.DB != nil {
		querier = deps.DB
	}
	store, err := tourStore(cfg, querier, deps.Firestore)
	if err != nil {
		_ = s.Stream.Close()
		return nil, err
	}
	s.Mountains, err = mountainCatalog(cfg, querier, deps.Firestore)
	if err != nil {
		_ = s.Stream.Close()
		return nil, err
	}
	live := tourstore.NewLive(store, s.Stream, clk, log.Named("tourstore"))

	s.Tracking = tracking.NewService(live, s.Mountains,
		tracking.WithClock(clk),
		tracking.WithLogger(log.Named("tracking")),
		tracking.WithMetrics(metrics),
		tracking.WithProbeTimeout(cfg.LocationProbeTimeout),
		tracking.WithMinDisplacement(cfg.MinDisplacementM),
	)

	registerRoutes(s)
	return s, nil
}

func tourStore(cfg config.Config, querier db.Querier, fs *firestore.Client) (tour.Store, error) {
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		store, err := tourstore.NewFirestore(fs)
		if err != nil {
			return nil, errors.Wrap(err, "firestore tour store")
		}
		return store, nil
	case config.StorePostgres, "":
		return tourstore.NewPostgres(querier), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// mountainCatalog keeps the catalog on the same backend as the tours.
func mountainCatalog(cfg config.Config, querier db.Querier, fs *firestore.Client) (mountain.Catalog, error) {
	if cfg.UsesFirestore() {
		catalog, err := mountain.NewFirestore(fs)
		if err != nil {
			return nil, errors.Wrap(err, "firestore mountain catalog")
		}
		return catalog, nil
	}
	return mountain.NewService(querier), nil
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret))
	mountain.RegisterRoutes(s.App.Group("/mountains"), s.Mountains, jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/tours"), s.Tracking, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, auth.JWTQueryMiddleware(s.Cfg.JWTSecret))
}

// Close tears down open tour attempts and the progress hub.
func (s *Server) Close() error {
	s.Tracking.Shutdown()
	return s.Stream.Close()
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/presenze/apiserver/config"
	"github.com/presenze/apiserver/internal/db"
	"github.com/presenze/apiserver/internal/handlers"
	"github.com/presenze/apiserver/internal/logging"
	"github.com/presenze/apiserver/internal/mq"
	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/internal/report"
	"github.com/presenze/apiserver/internal/services"
	"github.com/presenze/apiserver/internal/storage"
	"github.com/presenze/apiserver/internal/store"
	"github.com/rs/zerolog"
)

// Server wraps the HTTP server, router and background workers.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     mq.Backend
	exporter   *report.Exporter
	log        zerolog.Logger
}

// New constructs a Server with all stores, services and workers wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logging.New(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var notifier notify.Notifier = notify.Noop{}
	if broker != nil {
		notifier = notify.NewPublisher(broker, cfg.Notify.Channel, log)
	}

	userRepo := store.NewUserRepository(dbConn)
	entryRepo := store.NewEntryRepository(dbConn)
	managerRepo := store.NewManagerRepository(dbConn)

	userService := services.NewUserService(userRepo, notifier)
	entryService := services.NewEntryService(entryRepo, notifier)
	managerService := services.NewManagerService(managerRepo)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: []string{cfg.AllowedOrigin},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/logs", func(r chi.Router) {
		handlers.EntryRouter(r, entryService, authMiddleware)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, managerService, jwtSecret)
	})

	var exporter *report.Exporter
	objects, err := newObjectStorage(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		if broker != nil {
			_ = broker.Close()
		}
		return nil, err
	}
	if objects != nil {
		router.Route("/reports", func(r chi.Router) {
			handlers.ReportRouter(r, objects, cfg.Report.ObjectKey)
		})
		if broker != nil {
			exporter = report.NewExporter(
				entryRepo, objects, broker,
				cfg.Notify.Channel, cfg.Report.ObjectKey, cfg.Report.Timezone,
				log,
			)
		}
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
		exporter:   exporter,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start launches the exporter, when configured, and runs the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.exporter != nil {
		go func() {
			if err := s.exporter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error().Err(err).Msg("presence exporter stopped")
			}
		}()
	}

	s.log.Info().Str("addr", s.httpServer.Addr).Msg("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.broker != nil {
		_ = s.broker.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newBroker(ctx context.Context, cfg config.Config) (mq.Backend, error) {
	switch cfg.Notify.Backend {
	case "rabbitmq":
		return mq.NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return mq.NewPubSubClient(ctx, cfg.PubSub)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}
}

func newObjectStorage(ctx context.Context, cfg config.Config) (storage.ObjectStorage, error) {
	switch cfg.Report.StorageBackend {
	case "minio":
		return storage.NewMinioClient(cfg.Minio)
	case "gcs":
		return storage.NewGCSClient(ctx, cfg.GCS)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown report storage backend %q", cfg.Report.StorageBackend)
	}
}

package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/RubachokBoss/class-balancer/internal/balancer"
	"github.com/RubachokBoss/class-balancer/internal/config"
	"github.com/RubachokBoss/class-balancer/internal/delivery/httpd"
	"github.com/RubachokBoss/class-balancer/internal/exporter"
	"github.com/RubachokBoss/class-balancer/internal/parser"
	"github.com/RubachokBoss/class-balancer/internal/repository"
	"github.com/RubachokBoss/class-balancer/internal/service"
	"github.com/RubachokBoss/class-balancer/internal/service/integration"
	"github.com/RubachokBoss/class-balancer/internal/storage"
	"github.com/RubachokBoss/class-balancer/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

type App struct {
	server         *http.Server
	logger         zerolog.Logger
	config         *config.Config
	db             *sql.DB
	store          storage.SessionStore
	rabbitmqClient integration.RabbitMQClient
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	// Хранилище артефактов сессий
	store, err := newSessionStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}

	var rabbitmqClient integration.RabbitMQClient
	if cfg.RabbitMQ.Enabled {
		rabbitmqClient, err = integration.NewRabbitMQClient(
			cfg.RabbitMQ.URL,
			cfg.RabbitMQ.Exchange,
			cfg.RabbitMQ.RoutingKey,
			cfg.RabbitMQ.QueueName,
			log,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create RabbitMQ client")
			// Продолжаем без RabbitMQ, это допустимо для разработки
			rabbitmqClient = nil
		}
	}

	var runRepo repository.PlacementRunRepository
	if db != nil {
		runRepo = repository.NewPlacementRunRepository(db, log)
	}

	// Движок балансировки и его окружение
	engine := balancer.NewEngine(balancer.Config{
		TopTierRatio:   cfg.Balancer.TopTierRatio,
		TopWeight:      cfg.Balancer.TopWeight,
		SubjectWeight:  cfg.Balancer.SubjectWeight,
		Rounds:         cfg.Balancer.Rounds,
		MaxPasses:      cfg.Balancer.MaxPasses,
		MaxEvaluations: cfg.Balancer.MaxEvaluations,
		RefineTimeout:  cfg.Balancer.RefineTimeout,
	}, log)

	rosterParser := parser.New(log)
	excelExporter := exporter.New(log)
	pool := worker.NewPool(cfg.Balancer.MaxWorkers, log)

	// Создаем сервисы
	placementService := service.NewPlacementService(
		rosterParser,
		engine,
		excelExporter,
		store,
		pool,
		runRepo,
		rabbitmqClient,
		cfg.Balancer.DefaultSeed,
		log,
	)
	sessionService := service.NewSessionService(store, log)

	// Создаем обработчики
	handler := httpd.NewHandler(
		placementService,
		sessionService,
		store,
		cfg.Upload,
		log,
	)

	// Создаем роутер
	router := chi.NewRouter()

	// Настраиваем middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Настраиваем CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// Регистрируем маршруты
	handler.RegisterRoutes(router)

	// Создаем HTTP сервер
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		server:         server,
		logger:         log,
		config:         cfg,
		db:             db,
		store:          store,
		rabbitmqClient: rabbitmqClient,
	}, nil
}

func newSessionStore(cfg *config.Config, log zerolog.Logger) (storage.SessionStore, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return storage.NewMinIOStore(
			cfg.Storage.MinIO.Endpoint,
			cfg.Storage.MinIO.AccessKey,
			cfg.Storage.MinIO.SecretKey,
			cfg.Storage.MinIO.Bucket,
			cfg.Storage.MinIO.Region,
			cfg.Storage.MinIO.UseSSL,
			cfg.Storage.MinIO.ConnectTimeout,
			log,
		)
	case "memory", "":
		return storage.NewMemoryStore(cfg.Session.TTL, cfg.Session.CleanupInterval, log), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func (a *App) Run() error {
	a.logger.Info().Msgf("Starting class balancer on %s", a.config.Server.Address)
	return a.server.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down class balancer...")

	// Закрываем RabbitMQ соединение
	if a.rabbitmqClient != nil {
		if err := a.rabbitmqClient.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	// Останавливаем фоновую очистку сессий
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close session store")
		}
	}

	// Закрываем соединение с БД
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	// Останавливаем сервер
	return a.server.Shutdown(ctx)
}

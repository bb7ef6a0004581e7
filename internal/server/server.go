package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"barberflow/internal/config"
	custommiddleware "barberflow/internal/middleware"
	"barberflow/internal/repository"
	"barberflow/internal/service"
	"barberflow/internal/store"
	"barberflow/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB, loc *time.Location) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))

	// Rate limiting backed by Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Initialize repositories
	tx := store.NewSQLTransactor(db, logger)
	slotRepo := repository.NewSlotRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	barberRepo := repository.NewBarberRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Initialize services
	authz := service.NewAuthorizer()
	scheduleValidator := service.NewScheduleValidator(loc)
	settingsCache := service.NewSettingsCache(settingsRepo, cfg.Business.SettingsCacheTTL, nil)

	bookingService := service.NewBookingService(tx, slotRepo, bookingRepo, customerRepo, barberRepo, scheduleValidator, authz, loc, nil, logger)
	blockingService := service.NewBlockingService(tx, slotRepo, barberRepo, scheduleValidator, authz, loc, nil, logger)
	saleService := service.NewSaleService(tx, productRepo, saleRepo, movementRepo, customerRepo, bookingRepo, barberRepo, settingsCache, authz, nil, logger)
	stockService := service.NewStockService(tx, productRepo, movementRepo, settingsCache, authz, nil, logger)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, settingsCache, authz, nil, logger)
	barberService := service.NewBarberService(barberRepo, authz, nil, logger)

	// Initialize handlers
	bookingHandler := transport.NewBookingHandler(bookingService, loc, logger)
	blockHandler := transport.NewBlockHandler(blockingService, loc, logger)
	saleHandler := transport.NewSaleHandler(saleService, logger)
	stockHandler := transport.NewStockHandler(stockService, logger)
	productHandler := transport.NewProductHandler(catalogService, logger)
	barberHandler := transport.NewBarberHandler(barberService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	// Register routes
	bookingHandler.RegisterRoutes(router, authMiddleware)
	blockHandler.RegisterRoutes(router, authMiddleware)
	saleHandler.RegisterRoutes(router, authMiddleware)
	stockHandler.RegisterRoutes(router, authMiddleware)
	productHandler.RegisterRoutes(router, authMiddleware)
	barberHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

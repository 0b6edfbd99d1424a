package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/farmbud/backend/internal/delivery/http"
	"github.com/farmbud/backend/internal/domain"
	"github.com/farmbud/backend/internal/repository/memory"
	"github.com/farmbud/backend/internal/repository/postgres"
	"github.com/farmbud/backend/internal/repository/redis"
	"github.com/farmbud/backend/internal/service"
	"github.com/farmbud/backend/internal/storage/minio"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Configuration
	cfg := loadConfig()

	log := newLogger(cfg.Env)
	defer func() { _ = log.Sync() }()
	if envErr != nil {
		log.Info("No .env file found, using system environment")
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var dataRepo service.DataRepository = postgres.NewMockRepository()
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err == nil {
			err = pool.Ping(ctx)
		}
		if err != nil {
			log.Warn("Could not connect to database, running with in-memory history", zap.Error(err))
		} else {
			defer pool.Close()
			repo := postgres.NewPostgresRepository(pool)
			if err := repo.Migrate(ctx); err != nil {
				log.Warn("Schema migration failed", zap.Error(err))
			}
			dataRepo = repo
			log.Info("Connected to PostgreSQL")
		}
	}

	// Session state: Redis when configured, process memory otherwise
	var (
		wizardStore domain.WizardStore = memory.NewWizardStore()
		prefillSlot domain.PrefillSlot = memory.NewPrefillSlot()
	)
	status := service.NewStatusService(log)
	if cfg.RedisAddr != "" {
		rdb, err := redis.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("Could not connect to Redis, keeping sessions in memory", zap.Error(err))
		} else {
			defer rdb.Close()
			wizardStore = redis.NewWizardStore(rdb, cfg.SessionTTL)
			prefillSlot = redis.NewPrefillSlot(rdb, cfg.SessionTTL)
			status.Register("redis", service.HealthFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			}))
			log.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	// Image archive is optional
	var archive domain.ImageArchive
	if cfg.Minio.Endpoint != "" {
		a, err := minio.NewImageArchive(ctx, cfg.Minio, log)
		if err != nil {
			log.Warn("Could not connect to MinIO, image archive disabled", zap.Error(err))
		} else {
			archive = a
			log.Info("Image archive ready", zap.String("bucket", cfg.Minio.Bucket))
		}
	}

	// Dependency Injection: Services
	weatherSvc := service.NewWeatherService(cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL, log)
	geocodeSvc := service.NewGeocodeService(cfg.GeoapifyAPIKey, cfg.GeoapifyURL, log,
		service.WithDebounce(cfg.GeocodeDebounce),
		service.WithMinQueryLen(cfg.GeocodeMinQuery),
	)
	mlBridge := service.NewMLBridge(cfg.MLServiceURL)
	classificationSvc := service.NewClassificationService(mlBridge, mlBridge, archive, dataRepo, log)
	locationSvc := service.NewLocationService(weatherSvc, geocodeSvc, log)
	wizardSvc := service.NewWizardService(wizardStore, classificationSvc, locationSvc, prefillSlot, log)
	predictionSvc := service.NewPredictionService(mlBridge, prefillSlot, dataRepo, log)

	status.Register("ml_service", mlBridge)
	status.Register("database", dataRepo)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "FarmBud API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 40 * time.Second,
		BodyLimit:    12 << 20,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization," + http.SessionHeader,
		ExposeHeaders:    http.SessionHeader,
		AllowCredentials: cfg.CORSOrigins != "*",
	}))
	app.Use(http.SessionMiddleware(cfg.SessionTTL))

	// Routes
	http.SetupRoutes(app, http.NewHandler(http.Services{
		Weather:         weatherSvc,
		Geocode:         geocodeSvc,
		Classifications: classificationSvc,
		Wizard:          wizardSvc,
		Prediction:      predictionSvc,
		Status:          status,
	}))

	// Graceful shutdown
	go func() {
		log.Info("Server starting", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn("Server forced to shutdown", zap.Error(err))
	}
	classificationSvc.WaitBackground()
	predictionSvc.WaitBackground()
	log.Info("Server exited gracefully")
}

type Config struct {
	DatabaseURL       string
	OpenWeatherAPIKey string
	OpenWeatherURL    string
	GeoapifyAPIKey    string
	GeoapifyURL       string
	GeocodeDebounce   time.Duration
	GeocodeMinQuery   int
	MLServiceURL      string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	SessionTTL        time.Duration
	Minio             minio.Config
	CORSOrigins       string
	Port              string
	Env               string
}

func loadConfig() *Config {
	return &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		OpenWeatherAPIKey: getEnv("OPENWEATHER_API_KEY", ""),
		OpenWeatherURL:    getEnv("OPENWEATHER_URL", service.DefaultOpenWeatherURL),
		GeoapifyAPIKey:    getEnv("GEOAPIFY_API_KEY", ""),
		GeoapifyURL:       getEnv("GEOAPIFY_URL", service.DefaultGeoapifyURL),
		GeocodeDebounce:   time.Duration(getEnvInt("GEOCODE_DEBOUNCE_MS", 300)) * time.Millisecond,
		GeocodeMinQuery:   getEnvInt("GEOCODE_MIN_QUERY", service.DefaultMinQueryLen),
		MLServiceURL:      getEnv("ML_SERVICE_URL", "http://127.0.0.1:5000"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		SessionTTL:        time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		Minio: minio.Config{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "farmbud-uploads"),
			Location:  getEnv("MINIO_LOCATION", "us-east-1"),
			Secure:    getEnv("MINIO_SECURE", "false") == "true",
		},
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("GO_ENV", "development"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func newLogger(env string) *zap.Logger {
	config := zap.NewProductionConfig()
	if env == "development" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	log, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

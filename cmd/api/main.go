package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/yourusername/gabarita-api/internal/catalog"
	"github.com/yourusername/gabarita-api/internal/config"
	"github.com/yourusername/gabarita-api/internal/domain/repository"
	"github.com/yourusername/gabarita-api/internal/handler"
	"github.com/yourusername/gabarita-api/internal/llm"
	"github.com/yourusername/gabarita-api/internal/middleware"
	"github.com/yourusername/gabarita-api/internal/repository/memory"
	pgRepo "github.com/yourusername/gabarita-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/gabarita-api/internal/repository/redis"
	"github.com/yourusername/gabarita-api/internal/service"
	"github.com/yourusername/gabarita-api/internal/service/generator"
	"github.com/yourusername/gabarita-api/internal/service/questionpool"
	"github.com/yourusername/gabarita-api/pkg/database"
)

// stores - реализации хранилищ, выбранные по storage.driver
type stores struct {
	content repository.ContentStore
	ledger  repository.ExposureLedger
	stats   repository.UserStatsRepository
	pending repository.PendingRecordStore
	events  repository.EventPublisher
	cache   repository.CacheRepository
	close   func()
}

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем хранилища
	st, err := openStores(cfg)
	if err != nil {
		log.Printf("Failed to initialize storage: %v", err)
		os.Exit(1)
	}
	defer st.close()

	// Каталог тем edital
	cat, err := catalog.Load()
	if err != nil {
		log.Printf("Failed to load edital catalog: %v", err)
		os.Exit(1)
	}

	// LLM провайдер и генератор
	retry := llm.DefaultRetryConfig()
	if cfg.LLM.RetryAttempts > 0 {
		retry.MaxAttempts = cfg.LLM.RetryAttempts
	}
	provider, err := llm.NewProvider(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Retry:    retry,
	})
	if err != nil {
		log.Printf("Failed to initialize LLM provider: %v", err)
		os.Exit(1)
	}
	log.Printf("LLM provider: %s", provider.ModelID())

	gen, err := generator.New(provider, generator.Config{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		log.Printf("Failed to initialize question generator: %v", err)
		os.Exit(1)
	}

	// --- Инициализация движка выбора и регистратора ответов ---
	selectionConfig := questionpoolConfig(cfg.Selection)
	deps := &questionpool.Dependencies{
		Content:   st.content,
		Ledger:    st.ledger,
		Generator: gen,
		Topics:    cat,
		Pending:   st.pending,
		Stats:     st.stats,
		Events:    st.events,
		Cache:     st.cache,
	}
	engine, err := questionpool.NewEngine(selectionConfig, deps)
	if err != nil {
		log.Printf("Failed to initialize selection engine: %v", err)
		os.Exit(1)
	}
	recorder, err := questionpool.NewRecorder(selectionConfig, deps)
	if err != nil {
		log.Printf("Failed to initialize answer recorder: %v", err)
		os.Exit(1)
	}

	// Инициализируем сервисы
	historyService := service.NewHistoryService(st.ledger)
	statsService := service.NewStatsService(st.stats, st.cache)
	poolService := service.NewPoolService(st.content, st.ledger)

	// Инициализируем обработчики и middleware
	questionHandler := handler.NewQuestionHandler(engine, recorder, historyService, statsService, poolService, cat)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Enabled, cfg.Auth.JWTSecret)
	rateLimiter := middleware.NewRateLimiter(st.cache)

	// Инициализируем роутер Gin
	router := gin.Default()

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	allowedOrigins := cfg.CORS.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	handler.RegisterRoutes(router, questionHandler, authMiddleware,
		rateLimiter.Limit(middleware.GenerateRateLimitConfig(cfg.RateLimit.GeneratePerMinute)))

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks.
	// WriteTimeout должен покрывать таймаут генерации.
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	if srv.WriteTimeout <= selectionConfig.GenerateTimeout {
		log.Printf("Warning: server write timeout (%s) does not cover generation timeout (%s)", srv.WriteTimeout, selectionConfig.GenerateTimeout)
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Дожидаемся фоновых обновлений статистики
	done := make(chan struct{})
	go func() {
		recorder.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Println("Warning: pending stats updates were not finished before shutdown")
	}

	log.Println("Server exited properly")
}

// questionpoolConfig переводит настройки из конфигурации в параметры движка.
// Нулевые значения заменяются значениями по умолчанию внутри questionpool.
func questionpoolConfig(s config.SelectionConfig) *questionpool.Config {
	def := questionpool.DefaultConfig()
	out := *def
	if s.GenerateTimeoutSec > 0 {
		out.GenerateTimeout = time.Duration(s.GenerateTimeoutSec) * time.Second
	}
	if s.WriteTimeoutMs > 0 {
		out.WriteTimeout = time.Duration(s.WriteTimeoutMs) * time.Millisecond
	}
	if s.MaxPoolAttempts > 0 {
		out.MaxPoolAttempts = s.MaxPoolAttempts
	}
	if s.PoolCandidates > 0 {
		out.PoolCandidates = s.PoolCandidates
	}
	if s.StatsTimeoutMs > 0 {
		out.StatsTimeout = time.Duration(s.StatsTimeoutMs) * time.Millisecond
	}
	return &out
}

// openStores создает хранилища: Postgres + Redis или in-memory для локальной разработки
func openStores(cfg *config.Config) (*stores, error) {
	if cfg.UsesMemoryStorage() {
		log.Println("WARNING: storage.driver=memory, data will be lost on restart")
		pool := memory.NewQuestionPool()
		return &stores{
			content: pool,
			ledger:  memory.NewExposureLedger(pool),
			stats:   memory.NewStatsStore(),
			pending: memory.NewPendingStore(),
			events:  memory.NewEventRecorder(),
			cache:   memory.NewCacheStore(),
			close:   func() {},
		}, nil
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		return nil, err
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		return nil, err
	}
	log.Println("Successfully connected to Redis")

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		return nil, closeOnError(redisClient, err)
	}
	pendingRepo, err := redisRepo.NewPendingRecordRepo(redisClient, 0)
	if err != nil {
		return nil, closeOnError(redisClient, err)
	}
	publisher, err := redisRepo.NewEventPublisher(redisClient)
	if err != nil {
		return nil, closeOnError(redisClient, err)
	}

	return &stores{
		content: pgRepo.NewQuestionPoolRepo(db),
		ledger:  pgRepo.NewExposureRepo(db),
		stats:   pgRepo.NewUserStatsRepo(db),
		pending: pendingRepo,
		events:  publisher,
		cache:   cacheRepo,
		close: func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing Redis client: %v", err)
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

func closeOnError(client redis.UniversalClient, err error) error {
	client.Close()
	return err
}

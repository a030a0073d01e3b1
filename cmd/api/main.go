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

	"github.com/yourusername/studyquiz-api/internal/config"
	"github.com/yourusername/studyquiz-api/internal/handler"
	"github.com/yourusername/studyquiz-api/internal/middleware"
	pgRepo "github.com/yourusername/studyquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/studyquiz-api/internal/repository/redis"
	"github.com/yourusername/studyquiz-api/internal/service"
	"github.com/yourusername/studyquiz-api/internal/service/quizgen"
	"github.com/yourusername/studyquiz-api/pkg/auth"
	"github.com/yourusername/studyquiz-api/pkg/database"
	"github.com/yourusername/studyquiz-api/pkg/extract"
)

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

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	historyRepo := pgRepo.NewHistoryRepo(db)
	rateLimitRepo := pgRepo.NewRateLimitRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	sessionTTL := time.Duration(cfg.Redis.SessionTTLHrs) * time.Hour
	sessionRepo, err := redisRepo.NewSessionRepo(redisClient, sessionTTL)
	if err != nil {
		log.Printf("Failed to initialize SessionRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Почта: Resend, если настроен ключ, иначе noop
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.ResendAPIKey != "" {
		resendService, errEmail := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if errEmail != nil {
			log.Printf("Failed to initialize ResendEmailService: %v. Письма отключены.", errEmail)
		} else {
			emailService = resendService
		}
	}

	// Клиент генератора викторин
	generatorClient := quizgen.NewClient(
		cfg.Generator.BaseURL,
		cfg.Generator.APIKey,
		cfg.Generator.Model,
		time.Duration(cfg.Generator.TimeoutSec)*time.Second,
	)

	// Инициализируем сервисы
	authService := service.NewAuthService(userRepo, jwtService, emailService)
	rateLimitService := service.NewRateLimitService(rateLimitRepo, cfg.RateLimit.DailyLimit, cfg.RateLimit.MonthlyLimit)
	generationService := service.NewGenerationService(generatorClient, rateLimitService, cacheRepo)
	historyService := service.NewHistoryService(historyRepo)
	sessionService := service.NewSessionService(sessionRepo, historyService, generationService)

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService)
	quizHandler := handler.NewQuizHandler(generationService, sessionService, rateLimitService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	historyHandler := handler.NewHistoryHandler(historyService)
	documentHandler := handler.NewDocumentHandler(extract.NewExtractor())

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	burstLimiter := middleware.NewBurstLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	// При деплое за load balancer: добавьте IP балансировщика в список
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
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация: строгий лимит против перебора паролей
		authGroup := api.Group("/auth")
		authGroup.Use(burstLimiter.Limit(middleware.StrictAuthBurstConfig()))
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/me", authHandler.Me)
		}

		// Генерация: работает и анонимно, под IP-квотой
		generate := api.Group("")
		generate.Use(authMiddleware.OptionalAuth())
		{
			generate.POST("/quizzes/generate", quizHandler.GenerateInteractive)
			generate.GET("/rate-limit", quizHandler.RateLimitStatus)
		}

		// Документы
		api.POST("/documents/extract", documentHandler.Extract)

		// Сессии прохождения: адресуются по uuid.
		// Сессии с владельцем доступны только владельцу,
		// поэтому токен разбирается и для этой группы
		sessions := api.Group("/sessions/:id")
		sessions.Use(authMiddleware.OptionalAuth())
		{
			sessions.GET("", sessionHandler.Get)
			sessions.POST("/select", sessionHandler.Select)
			sessions.POST("/submit", sessionHandler.Submit)
			sessions.POST("/next", sessionHandler.Next)
			sessions.POST("/fifty-fifty", sessionHandler.FiftyFifty)
			sessions.POST("/hint", sessionHandler.Hint)
			sessions.POST("/retry-missed", sessionHandler.RetryMissed)
			sessions.POST("/restart", sessionHandler.Restart)
		}

		// История
		history := api.Group("/history")
		history.Use(authMiddleware.RequireAuth())
		{
			history.GET("", historyHandler.List)
			history.GET("/export", historyHandler.Export)
			history.DELETE("", historyHandler.DeleteAll)

			historyWithID := history.Group("/:id")
			historyWithID.Use(middleware.ExtractUintParam("id", "entryID"))
			{
				historyWithID.DELETE("", historyHandler.Delete)
			}
		}
	}

	// Программный API генерации: количество вопросов приводится
	// к диапазону вместо отклонения
	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware.OptionalAuth())
	{
		apiV1.POST("/generate", quizHandler.GenerateProgrammatic)
	}

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}

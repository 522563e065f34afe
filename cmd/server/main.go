package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/interview-server-go/internal/config"
	"github.com/openclaw/interview-server-go/internal/database"
	"github.com/openclaw/interview-server-go/internal/evaluator"
	"github.com/openclaw/interview-server-go/internal/handler"
	"github.com/openclaw/interview-server-go/internal/jobs"
	"github.com/openclaw/interview-server-go/internal/metrics"
	"github.com/openclaw/interview-server-go/internal/middleware"
	"github.com/openclaw/interview-server-go/internal/redis"
	"github.com/openclaw/interview-server-go/internal/repository"
	"github.com/openclaw/interview-server-go/internal/service"
	"github.com/openclaw/interview-server-go/internal/sse"
	"github.com/openclaw/interview-server-go/internal/storage"
	"github.com/openclaw/interview-server-go/internal/structure"
	"github.com/openclaw/interview-server-go/internal/token"
	"github.com/openclaw/interview-server-go/internal/transcribe"
)

const (
	adminLoginFailureLimit  = 5
	adminLoginFailureWindow = 15 * time.Minute
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("APP_ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	st, err := structure.Load(cfg.Interview.StructureFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load interview structure")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	audioStore, err := storage.NewAudioStore(cfg.Storage.AudioPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare audio storage")
	}

	eval, err := newEvaluator(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create evaluator")
	}
	log.Info().Str("provider", eval.Provider()).Msg("evaluator ready")

	transcriber := transcribe.NewGroqWhisper(transcribe.GroqConfig{
		APIKey:  cfg.Providers.GroqAPIKey,
		BaseURL: cfg.Providers.GroqBaseURL,
		Model:   cfg.Providers.GroqWhisperModel,
		Timeout: cfg.Providers.TranscribeTimeout(),
	})

	inviteRepo := repository.NewInviteRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	turnRepo := repository.NewTurnRepository(db.DB)
	eventRepo := repository.NewProctorEventRepository(db.DB)
	profileRepo := repository.NewProfileRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL())

	interviewService := service.NewInterviewService(service.InterviewDeps{
		DB:                db,
		Invites:           inviteRepo,
		Sessions:          sessionRepo,
		Turns:             turnRepo,
		Events:            eventRepo,
		Profiles:          profileRepo,
		Structure:         st,
		Transcriber:       transcriber,
		Evaluator:         eval,
		Audio:             audioStore,
		Locker:            service.NewRedisLocker(redisClient, config.SubmissionLockTTL),
		Publisher:         broker,
		Tokens:            tokens,
		Policy:            cfg.Interview,
		TranscribeTimeout: cfg.Providers.TranscribeTimeout(),
		EvaluateTimeout:   cfg.Providers.EvaluateTimeout(),
	})
	inviteService := service.NewInviteService(inviteRepo, profileRepo, cfg.Interview.AnswerSeconds, cfg.Interview.MaxQuestions)
	proctorService := service.NewProctorService(sessionRepo, eventRepo, broker)
	adminService := service.NewAdminService(
		sessionRepo, turnRepo, proctorService, st, broker,
		cfg.AdminUsername, cfg.AdminPasswordHash,
	)

	sessionAuth := middleware.NewSessionAuthMiddleware(tokens)
	adminAuth := middleware.NewAdminAuthMiddleware(
		adminService,
		service.NewLoginThrottle(redisClient.Client, adminLoginFailureLimit, adminLoginFailureWindow),
	)
	proctorRateLimit := middleware.NewSessionRateLimitMiddleware(redisClient.Client, config.DefaultProctorRateLimitPerMin)
	bodyLimit := middleware.NewBodyLimitMiddleware(cfg.Storage.MaxAudioBytes())
	securityHeaders := middleware.NewSecurityHeadersMiddleware(isProduction)

	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": db,
		"redis": handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	})
	inviteHandler := handler.NewInviteHandler(inviteService)
	sessionHandler := handler.NewSessionHandler(interviewService, proctorService, sessionAuth.Handler, proctorRateLimit.Handler)
	adminHandler := handler.NewAdminHandler(adminService, adminAuth.Handler, handler.NewEventsHandler(broker))
	audioHandler := handler.NewAudioHandler(audioStore.Dir())

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(securityHeaders.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(bodyLimit.Handler)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", metrics.Handler())

	// The admin monitor stream is long-lived, so only these routes get a
	// request timeout.
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Mount("/v1/invites", inviteHandler.Routes())
		r.Mount("/v1/sessions", sessionHandler.Routes())
	})

	r.Mount("/admin", adminHandler.Routes())
	r.With(adminAuth.Handler).Get(storage.URLPrefix+"{filename}", audioHandler.ServeHTTP)

	cleanupJob := jobs.NewCleanupJob(inviteRepo, config.HousekeepingJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	retentionJob, err := jobs.NewRetentionJob(audioStore, cfg.Storage.Retention(), cfg.Storage.RetentionSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to schedule audio retention")
	}
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newEvaluator(cfg *config.Config) (*evaluator.Client, error) {
	if cfg.Providers.Evaluator == "gemini" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return evaluator.NewGemini(ctx, evaluator.GeminiConfig{
			APIKey: cfg.Providers.GeminiAPIKey,
			Model:  cfg.Providers.GeminiModel,
		})
	}
	return evaluator.NewGroq(evaluator.GroqConfig{
		APIKey:  cfg.Providers.GroqAPIKey,
		BaseURL: cfg.Providers.GroqBaseURL,
		Model:   cfg.Providers.GroqChatModel,
		Timeout: cfg.Providers.EvaluateTimeout(),
	}), nil
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

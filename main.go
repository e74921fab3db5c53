package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "medqueue/docs"
	"medqueue/internal/auth"
	"medqueue/internal/config"
	"medqueue/internal/handlers"
	"medqueue/internal/middleware"
	"medqueue/internal/models"
	"medqueue/internal/observability"
	"medqueue/internal/queue"
	"medqueue/internal/storage"
	"medqueue/internal/tasks"
	"medqueue/internal/ws"
)

const version = "1.0.0"

// @Title						medqueue API
// @Version					1.0
// @Description				Realtime consultation queue: per doctor, per day FIFO queues with live updates over websocket.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("opentelemetry")
	}

	db, err := storage.ConnectDatabase(cfg.Database, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if err := storage.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	rdb, err := storage.InitRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}

	users := storage.NewUserStore(db)
	queues := storage.NewQueueStore(db)
	engine := queue.NewEngine(queues, users, queue.Config{
		MinutesPerPatient: cfg.Queue.MinutesPerPatient,
		Location:          cfg.Queue.Location,
	}, log.Logger)

	hub := ws.NewHub(log.Logger)
	go hub.Run(ctx)

	var cache redis.Cmdable
	if rdb != nil {
		cache = rdb
		relay := ws.NewRedisRelay(rdb, hub, log.Logger)
		go relay.Run(ctx)
		engine.SetNotifier(relay)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, queue events stay on this instance")
		engine.SetNotifier(hub)
	}

	planner := tasks.NewPlanner(engine, hub, cfg.Queue.Location, log.Logger)
	if err := planner.Start(); err != nil {
		log.Fatal().Err(err).Msg("cron")
	}

	tokens := auth.NewTokens(cfg.JWT)
	doctors := handlers.NewDoctorHandler(users, cache)
	authHandler := handlers.NewAuthHandler(users, tokens)
	authHandler.OnRegistered(func(_ context.Context, u *models.User) {
		log.Info().Uint("user_id", u.ID).Str("role", string(u.Role)).Msg("user registered")
	})
	queueHandler := handlers.NewQueueHandler(engine)
	limiter := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, nil)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), middleware.Metrics())
	if cfg.OTEL.Enabled {
		r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}
	corsCfg := cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", handlers.Health(queues))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authGroup := r.Group("/auth", gzip.Gzip(gzip.DefaultCompression))
	authHandler.Register(authGroup)

	apiGroup := r.Group("/api", auth.Middleware(tokens))
	{
		// the websocket upgrade must not go through gzip
		apiGroup.GET("/queue/ws", ws.NewHandler(hub, engine).ServeWS)

		rest := apiGroup.Group("", gzip.Gzip(gzip.DefaultCompression))
		queueHandler.Register(rest.Group("/queue"), limiter.Handler())
		rest.GET("/profile/queues", queueHandler.GetUserQueues)
		rest.GET("/doctors", doctors.ListDoctors)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	planner.Stop(shutdownCtx)
	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty || cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.With().Str("service", cfg.OTEL.ServiceName).Logger()
}

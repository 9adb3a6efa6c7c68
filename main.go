package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ardacey/Lexo/auth"
	"github.com/ardacey/Lexo/config"
	"github.com/ardacey/Lexo/crypto"
	"github.com/ardacey/Lexo/events"
	"github.com/ardacey/Lexo/game"
	"github.com/ardacey/Lexo/migrations"
	"github.com/ardacey/Lexo/shared/logger"
	"github.com/ardacey/Lexo/storage"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CreateServer(allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.SetTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})
	r.GET("/health", func(ctx *gin.Context) { ctx.String(200, "healthy") })

	r.Use(func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")

		if slices.Contains(allowedOrigins, origin) {
			ctx.Next()
			return
		}
		ctx.String(http.StatusForbidden, "forbidden origin")
		ctx.Abort()
	})

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Authorization",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
	}))

	return r
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("[Main] %v", err)
	}
	logger.Setup(cfg.LogLevel, cfg.Debug)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	opts := []game.Option{game.WithSettings(cfg.Game)}

	// Stats are optional: without a database the engine runs in memory only.
	var stats game.StatsReader
	if cfg.PostgresURL != "" {
		if err := migrations.Migrate(cfg.PostgresURL); err != nil {
			logger.Fatalf("[Main] %v", err)
		}
		pgRepo, err := storage.NewPostgresRepo(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Fatalf("[Main] %v", err)
		}
		defer pgRepo.Close()
		opts = append(opts, game.WithStatsRecorder(pgRepo))
		stats = pgRepo

		if cfg.WordsFile == "" {
			if dict, err := game.LoadDictionaryFrom(ctx, pgRepo); err == nil && dict.Len() > 0 {
				logger.Infof("[Main] loaded %d words from the database", dict.Len())
				opts = append(opts, game.WithDictionary(dict))
			}
		}
	} else {
		logger.Warning("[Main] POSTGRES_URL not set, results will not be recorded")
	}

	if cfg.WordsFile != "" {
		dict, err := game.LoadDictionaryFile(cfg.WordsFile)
		if err != nil {
			logger.Fatalf("[Main] failed to load %s: %v", cfg.WordsFile, err)
		}
		logger.Infof("[Main] loaded %d words from %s", dict.Len(), cfg.WordsFile)
		opts = append(opts, game.WithDictionary(dict))
	}

	if cfg.NatsURL != "" {
		publisher, err := events.Connect(cfg.NatsURL)
		if err != nil {
			logger.Fatalf("[Main] %v", err)
		}
		defer publisher.Close()
		opts = append(opts, game.WithEventPublisher(publisher))
	}

	service := game.NewService(opts...)
	matchmaker := game.NewMatchmaker(service, game.NewUUIDGenerator(), service.Clock())
	sweeper, err := game.NewSweeper(service, matchmaker)
	if err != nil {
		logger.Fatalf("[Main] %v", err)
	}
	sweeper.Start()

	tokenManager := crypto.NewJWTManager(cfg.JWTKey, cfg.TokenMaxAge)
	authHandler := auth.NewAuthHandler(tokenManager, cfg.TokenMaxAge)
	gameHandler := game.NewGameHandler(service, matchmaker, stats, cfg.AllowedOrigins)

	r := CreateServer(cfg.AllowedOrigins)
	{
		authGroup := r.Group("/auth")
		authGroup.GET("/refresh", authHandler.RefreshSessionHandler)
		authGroup.POST("/logout", authHandler.LogoutHandler)
	}
	{
		gameGroup := r.Group("/")
		gameGroup.Use(authHandler.RequireAuthMiddleware(time.Second * 2))
		gameHandler.RegisterRoutes(gameGroup)
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[Main] server stopped: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, os.Interrupt)
	logger.Infof("[Main] server started on :%s", cfg.Port)
	<-sigCh
	logger.Info("[Main] SIGTERM or SIGINT received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("[Main] http shutdown: %v", err)
	}
	if err := sweeper.Shutdown(); err != nil {
		logger.Warningf("[Main] sweeper shutdown: %v", err)
	}
	service.Close()
	logger.Info("[Main] shutting down now")
}

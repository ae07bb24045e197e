package main

import (
	"context"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Nishant28-sh/TradeTogether/internal/auth"
	"github.com/Nishant28-sh/TradeTogether/internal/cache"
	"github.com/Nishant28-sh/TradeTogether/internal/config"
	"github.com/Nishant28-sh/TradeTogether/internal/handler"
	"github.com/Nishant28-sh/TradeTogether/internal/hub"
	"github.com/Nishant28-sh/TradeTogether/internal/service"
	"github.com/Nishant28-sh/TradeTogether/internal/store"
	"github.com/Nishant28-sh/TradeTogether/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	log.Init(cfg.Log)
	logger := log.L()
	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting chat service")

	// Message store
	var msgStore store.MessageStore
	if len(cfg.Cassandra.Hosts) > 0 {
		msgStore, err = store.NewCassandraStore(cfg.Cassandra)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to cassandra")
		}
		logger.Info().Strs("hosts", cfg.Cassandra.Hosts).Msg("connected to cassandra")
	} else {
		logger.Warn().Msg("no cassandra hosts configured, using in-memory message store")
		msgStore = store.NewMemoryStore()
	}
	defer msgStore.Close()

	// Recent-history cache
	var msgCache cache.MessageCache
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisMessageCache(cfg.Redis, "chat:history")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		msgCache = redisCache
		logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	}

	// Hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Coordinator
	history := service.NewHistoryReader(msgStore, msgCache, cfg.History)
	chatSvc := service.NewChatService(wsHub, msgStore, history)

	// Identity verification
	var verifier auth.TokenVerifier
	if cfg.Auth.Required {
		if cfg.Auth.Secret == "" {
			logger.Fatal().Msg("auth.required is set but auth.secret is empty")
		}
		verifier = auth.NewJWTVerifier(cfg.Auth.Secret)
	}

	// HTTP surface
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware(logger))

	handler.NewWSHandler(wsHub, chatSvc, verifier, cfg.WebSocket).RegisterRoutes(router)
	handler.NewHTTPHandler(history).RegisterRoutes(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("chat service stopped")
}

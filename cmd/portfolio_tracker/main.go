package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"portfolio_tracker/internal/api"
	"portfolio_tracker/internal/client"
	"portfolio_tracker/internal/config"
	"portfolio_tracker/internal/pkg/utils"
	"portfolio_tracker/internal/repository"
	"portfolio_tracker/internal/scheduler"
	"portfolio_tracker/internal/service"
	"portfolio_tracker/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"golang.org/x/time/rate"
)

func main() {
	// logrus covers the config-loading phase; services log through zap.
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	// Route slog users (including library code) through the same core.
	slogHandler := zapslog.NewHandler(zapLogger.Core(), &zapslog.HandlerOptions{})
	slog.SetDefault(slog.New(slogHandler))

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warnf("Invalid log level in config: %s. Defaulting to Info.", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(file)
		} else {
			log.Infof("Failed to log to file, using default stdout: %v", err)
		}
	}

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	// Persistent ledger / wallet store.
	store, err := repository.NewFileStore(cfg.Ledger.DataFile, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open ledger store", zap.Error(err))
	}

	// Market data client behind the single-in-flight scheduler.
	coingeckoTimeout := time.Duration(cfg.CoinGecko.RequestTimeoutMillis) * time.Millisecond
	coingeckoClient := client.NewCoinGeckoClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.APIKey, coingeckoTimeout, zapLogger)
	zapLogger.Info("CoinGecko client initialized")

	sched := scheduler.New(
		time.Duration(cfg.PriceCache.RequestSpacingMillis)*time.Millisecond,
		time.Duration(cfg.PriceCache.RequestTimeoutMillis)*time.Millisecond,
		cfg.PriceCache.QueueSize,
		zapLogger,
	)
	defer sched.Close()

	priceService := service.NewPriceService(zapLogger, cfg, coingeckoClient, sched)
	holdingsService := service.NewHoldingsService(zapLogger, store, store, priceService)
	zapLogger.Info("Services initialized")

	// Background refresh keeps the price cache warm and retries
	// transient failures by recomputing on an interval.
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	refresher := service.NewRefresher(
		zapLogger,
		store,
		holdingsService,
		time.Duration(cfg.Refresh.IntervalSeconds)*time.Second,
		cfg.Refresh.DefaultCurrency,
	)
	go refresher.Run(refreshCtx)

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true // Adjust for production
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(utils.ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	apiLimiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.BurstLimit)
	handler := api.NewHandler(store, holdingsService, priceService, zapLogger)
	api.RegisterRoutes(router, handler, apiLimiter)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	zapLogger.Info("Prometheus metrics endpoint enabled", zap.String("path", "/metrics"))

	// Pprof endpoints (protect these in a production environment).
	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	stopRefresh()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}

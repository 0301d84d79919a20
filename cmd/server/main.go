package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coldstart-inference/internal/config"
	"coldstart-inference/internal/handlers"
	"coldstart-inference/internal/middleware"
	"coldstart-inference/internal/tracing"
	"coldstart-inference/pkg/server"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Cold Start Inference API
// @version 1.0
// @description Local server for the prediction function
// @host localhost:8081
// @BasePath /

const serviceName = "coldstart-inference"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Init(ctx, cfg.Telemetry.TraceExport, serviceName, cfg.Function.Version)
	if err != nil {
		logrus.Fatalf("Failed to initialize tracing: %v", err)
	}

	container, err := server.NewContainer(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Close()

	logger := container.Logger

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(container),
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":         cfg.Port,
		"storage":      cfg.Storage.Type,
		"model_bucket": cfg.Model.Bucket,
	}).Info("Server started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warnf("Failed to flush traces: %v", err)
	}

	logger.Info("Server exited")
}

func newRouter(container *server.Container) *gin.Engine {
	cfg := container.Config
	logger := container.Logger

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.PerformanceMonitor(logger, time.Second))
	router.Use(middleware.CORS())

	predict := handlers.NewPredictHandler(container.Models, container.Telemetry, cfg.Model.PredictionFormat, logger)
	httpHandler := handlers.NewHTTPHandler(predict, cfg.Function, cfg.Server.RequestTimeout)
	health := handlers.NewHealthHandler(container.Models, cfg.Function.Version)

	router.GET("/health", health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/predict",
		middleware.RateLimiter(logger, cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		middleware.RequestSizeLimit(1<<20),
		middleware.ContentTypeValidation("application/json"),
		httpHandler.Predict,
	)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

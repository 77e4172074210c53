// Command compound-proxy is a caching reverse proxy between the compound
// database SPA and the backend API. It forwards /api requests through the
// caching client, serves Prometheus metrics, and handles CORS for the
// frontend origin.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/mohrezaeib/cyto-compound-client/internal/config"
	"github.com/mohrezaeib/cyto-compound-client/pkg/client"
	"github.com/mohrezaeib/cyto-compound-client/pkg/logging"
)

func main() {
	// Load .env if present, then the YAML config.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Logging.Level),
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	}).With().Str("component", "compound-proxy").Logger()

	// Optional Redis cache
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		logger.Info().Msg("No Redis configured, response caching disabled")
	}

	apiClient, err := client.New(client.Config{
		BaseURL:    cfg.API.BaseURL,
		Redis:      redisClient,
		UserAgent:  cfg.API.UserAgent,
		Timeout:    time.Duration(cfg.API.TimeoutSec) * time.Second,
		MaxRetries: cfg.API.MaxRetries,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create API client")
	}

	router := newRouter(apiClient, logger)

	handler := cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(router)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
		close(done)
	}()

	logger.Info().
		Int("port", cfg.HTTP.Port).
		Str("backend", cfg.API.BaseURL).
		Msg("Starting compound proxy")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}
	<-done
}

// newRouter builds the proxy routes: health, metrics, and the whitelisted
// API endpoints forwarded through the caching client.
func newRouter(apiClient *client.Client, logger zerolog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(requestLogger(logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	router.Handle("/metrics", promhttp.Handler())

	router.Get("/api/items", forward(apiClient, logger, func(r *http.Request) string {
		return "/items"
	}))
	router.Get("/api/item/{molIdx}", forward(apiClient, logger, func(r *http.Request) string {
		return "/item/" + chi.URLParam(r, "molIdx")
	}))
	router.Get("/api/health", forward(apiClient, logger, func(r *http.Request) string {
		return "/health"
	}))

	return router
}

// forward proxies a request through the caching client and writes the
// backend's JSON body back to the SPA.
func forward(apiClient *client.Client, logger zerolog.Logger, endpoint func(*http.Request) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		body, err := apiClient.Get(ctx, endpoint(r), r.URL.Query())
		if err != nil {
			writeAPIError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			logger.Warn().Err(err).Msg("Failed to write response")
		}
	}
}

// writeAPIError maps a client error onto the proxy response: backend
// status codes pass through, network failures become 502.
func writeAPIError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	status := http.StatusBadGateway

	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		status = apiErr.StatusCode
	}

	logger.Error().Err(err).Int("status", status).Msg("Proxy request failed")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error": "upstream request failed"}`))
}

// requestLogger logs one line per proxied request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
		})
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/cache"
	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/export"
	"github.com/loglens/loglens/internal/pagination"
	"github.com/loglens/loglens/internal/session"
	"github.com/loglens/loglens/internal/store"
	"github.com/loglens/loglens/internal/websocket"
)

var version = "dev"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found")
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("version", version).Msg("Starting LogLens")

	// Load configuration
	cfg := config.Load()

	// Saved definitions store
	boltStore, err := store.NewBoltStore(cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer boltStore.Close()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// The analysis session pushes progress events to connected clients.
	sess := session.New(wsHub.BroadcastProgress)

	paginator := pagination.NewPaginator(cfg.Pagination.DefaultPageSize, cfg.Pagination.MaxPageSize)
	filterCache := cache.NewFilterCache(
		cache.NewMemoryCache(cfg.Cache.MaxEntries),
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
	)

	// Setup routes
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		api.Routes(r, api.Handlers{
			Session:     api.NewSessionHandler(sess, paginator, filterCache),
			Query:       api.NewQueryHandler(sess, boltStore),
			Extract:     api.NewExtractHandler(sess, boltStore),
			Export:      api.NewExportHandler(sess, export.NewExporter()),
			FilterStore: api.NewFilterStoreHandler(boltStore),
			WebSocket:   websocket.HandleWebSocket(wsHub),
			JWTSecret:   cfg.JWT.Secret,
		})
	})

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
		close(done)
	}()

	log.Info().Str("port", cfg.Server.Port).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	<-done
	log.Info().Msg("Server stopped")
}

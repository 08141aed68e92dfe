package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"handbook/api/internal/app"
	"handbook/api/internal/authpw"
	"handbook/api/internal/blob"
	"handbook/api/internal/config"
	"handbook/api/internal/history"
	"handbook/api/internal/search"
	"handbook/api/internal/session"
	"handbook/api/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	if cfg.Production() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	dataStore := store.NewPostgresStore(db)
	historyService := history.New(cfg.HistoryDir)

	var blobStore blob.Store
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		log.Info().Str("endpoint", cfg.MinioEndpoint).Msg("using MinIO for file storage")
		minioStore, err := blob.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("minio connection failed")
		}
		blobStore = minioStore
	} else {
		log.Info().Str("dir", cfg.UploadDir).Msg("using disk for file storage")
		diskStore, err := blob.NewDiskStore(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("upload dir setup failed")
		}
		blobStore = diskStore
	}

	pglike := search.NewPgLike(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		log.Info().Str("url", cfg.MeiliURL).Msg("using Meilisearch for search")
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pglike)
	if meiliClient != nil {
		go searchService.ReindexAllFromPG(ctx)
	}

	var sessionStore session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Info().Msg("using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		sessionStore = redisStore
	} else {
		log.Info().Msg("using PostgreSQL for refresh token storage")
		sessionStore = session.NewPGStore(db)
	}

	service := app.NewService(app.ServiceOptions{
		Store:      dataStore,
		DB:         db,
		Sessions:   sessionStore,
		Passwords:  authpw.New(dataStore),
		Search:     searchService,
		History:    historyService,
		Blobs:      blobStore,
		JWTSecret:  []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
		Production: cfg.Production(),
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           corsMiddleware.Handler(app.NewHTTPServer(service).Handler()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("handbook API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

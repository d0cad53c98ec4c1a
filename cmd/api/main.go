package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"blog-api/core"
)

func main() {
	cfg, err := core.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	startedAt := time.Now()
	var (
		credentials core.CredentialRepository
		posts       core.PostRepository
		probes      []core.Probe
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Printf("using in-memory store; data is lost on exit")
		credentials = core.NewMemoryCredentialRepository()
		posts = core.NewMemoryPostRepository()
	default:
		db, err := core.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		defer db.Close()
		if cfg.RunMigrations {
			if err := core.RunMigrations(ctx, db); err != nil {
				log.Fatalf("failed to run migrations: %v", err)
			}
		}
		probes = append(probes, core.Probe{Name: "postgres", Check: db.Ping})
		credentials = core.NewPgCredentialRepository(db)
		posts = core.NewPgPostRepository(db)
	}

	var (
		seq   core.Sequencer = &core.LocalSequencer{}
		cache core.ListCache
	)
	if cfg.RedisURL != "" {
		redisClient, err := core.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer redisClient.Close()
		seq, cache = redisBacked(redisClient, cfg)
		probes = append(probes, core.Probe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	var storage core.BlobStorage
	switch cfg.UploadBackend {
	case "s3":
		storage, err = core.NewS3Storage(ctx, cfg)
	default:
		storage, err = core.NewFSStorage(cfg.UploadDir)
	}
	if err != nil {
		log.Fatalf("failed to init upload storage: %v", err)
	}

	tokens := core.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	authService := core.NewRepositoryAuthService(credentials, core.NewBcryptHasher(cfg.BcryptCost), tokens)
	uploads := core.NewUploader(storage, seq, cfg.MaxUploadBytes)
	blog := core.NewBlogService(posts, uploads, cache, core.BlogServiceConfig{
		ListSecret:    cfg.ListSecret,
		PublicBaseURL: cfg.PublicBaseURL,
		DateLocale:    cfg.DateLocale,
	})

	status := core.NewStatusReporter(startedAt, probes...)
	router := core.NewRouter(cfg, authService, blog, uploads, status)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("starting api server on %s (store=%s uploads=%s)", srv.Addr, cfg.StoreBackend, cfg.UploadBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
	log.Printf("api server stopped")
}

func redisBacked(client *redis.Client, cfg core.Config) (core.Sequencer, core.ListCache) {
	return core.NewRedisSequencer(client), core.NewRedisListCache(client, cfg.ListCacheTTL)
}

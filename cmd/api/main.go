package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/apk-studio-backend/config"
	httpapi "github.com/GoSim-25-26J-441/apk-studio-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth"
	authmw "github.com/GoSim-25-26J-441/apk-studio-backend/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/build"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/codegen"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/janitor"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/logging"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/events"
	projecthttp "github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/http"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/lock"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/repository"
	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logging.Setup(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := service.Deps{
		Store:       repository.NewMemoryStore(),
		Builds:      repository.NewMemoryBuildLog(50),
		Locker:      lock.NewLocal(),
		Events:      events.Nop{},
		Generations: codegen.NewMemoryStore(cfg.Generation.RetentionTTL),
	}
	var sweepers []janitor.Sweeper
	if ms, ok := deps.Generations.(*codegen.MemoryStore); ok {
		sweepers = append(sweepers, ms)
	}

	var dbPinger httpapi.Pinger
	if cfg.Database.DSN != "" {
		dbOpts := bootstrap.DBOptions{
			DSN:       cfg.Database.DSN,
			MaxConns:  cfg.Database.MaxConns,
			ConnectTO: cfg.Database.ConnectTO,
		}
		sqlDB, err := bootstrap.OpenSQL(ctx, dbOpts)
		if err != nil {
			logger.Fatal("db init failed", zap.Error(err))
		}
		defer sqlDB.Close()

		store := repository.NewPostgresStore(sqlDB)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal("db schema failed", zap.Error(err))
		}
		deps.Store = store

		var pool *pgxpool.Pool
		pool, err = bootstrap.OpenDB(ctx, dbOpts)
		if err != nil {
			logger.Fatal("db pool init failed", zap.Error(err))
		}
		defer pool.Close()
		deps.Builds = repository.NewPgBuildLog(pool)
		dbPinger = pool
		logger.Info("postgres storage enabled")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Fatal("redis init failed", zap.Error(err))
		}
		defer rdb.Close()

		locker, err := lock.NewRedis(rdb, 2*cfg.Build.Timeout)
		if err != nil {
			logger.Fatal("redis lock init failed", zap.Error(err))
		}
		deps.Locker = locker
		deps.Events = events.NewRedisPublisher(rdb)
		deps.Generations = codegen.NewRedisStore(rdb, cfg.Generation.RetentionTTL)
		sweepers = nil
		logger.Info("redis coordination enabled")
	}

	signer, err := loadSigner(cfg.Build)
	if err != nil {
		logger.Fatal("signing key init failed", zap.Error(err))
	}
	collab, err := build.New(cfg.Build.Backend, signer, build.ApktoolOptions{
		ApktoolBin:       cfg.Build.ApktoolBin,
		ApksignerBin:     cfg.Build.ApksignerBin,
		KeystorePath:     cfg.Build.KeystorePath,
		KeystorePassword: cfg.Build.KeystorePassword,
		KeyAlias:         cfg.Build.KeyAlias,
	})
	if err != nil {
		logger.Fatal("build backend init failed", zap.Error(err))
	}
	deps.Collaborator = collab

	var backend codegen.Backend
	if cfg.Generation.LiveGeneration() {
		gemini, err := codegen.NewGemini(ctx, codegen.GeminiOptions{
			BaseURL:           cfg.Generation.BaseURL,
			Model:             cfg.Generation.Model,
			APIKey:            cfg.Generation.APIKey,
			UseADC:            cfg.Generation.UseADC,
			Timeout:           cfg.Generation.Timeout,
			Temperature:       cfg.Generation.Temperature,
			TopK:              cfg.Generation.TopK,
			TopP:              cfg.Generation.TopP,
			MaxOutputTokens:   cfg.Generation.MaxOutputTokens,
			RequestsPerMinute: cfg.Generation.RequestsPerMinute,
		})
		if err != nil {
			logger.Fatal("gemini init failed", zap.Error(err))
		}
		backend = gemini
		logger.Info("code generation backend enabled", zap.String("model", cfg.Generation.Model))
	} else {
		logger.Warn("no generation API key configured; using template fallback")
	}
	deps.Generator = codegen.NewGenerator(backend)

	svc, err := service.NewProjectService(deps, service.Options{
		ProjectsDir:      cfg.Storage.ProjectsDir,
		UploadDir:        cfg.Storage.UploadDir,
		BuildTimeout:     cfg.Build.Timeout,
		MinArtifactBytes: cfg.Build.MinArtifactBytes,
		LockWait:         cfg.Build.Timeout,
	})
	if err != nil {
		logger.Fatal("project service init failed", zap.Error(err))
	}

	var verifier authmw.TokenVerifier
	if cfg.Firebase.CredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, cfg.Firebase.CredentialsPath)
		if err != nil {
			logger.Fatal("firebase init failed", zap.Error(err))
		}
		verifier = client
		logger.Info("firebase authentication enabled")
	}

	jan, err := janitor.New(janitor.Options{
		Schedule:  cfg.Janitor.Schedule,
		UploadDir: cfg.Storage.UploadDir,
		Retention: cfg.Janitor.Retention,
		Sweepers:  sweepers,
	})
	if err != nil {
		logger.Fatal("janitor init failed", zap.Error(err))
	}
	jan.Start()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.Name,
		Version:        cfg.App.Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DB:             dbPinger,
		Redis:          rdb,
		Projects:       projecthttp.New(svc, cfg.Storage.UploadDir, cfg.Storage.MaxUploadBytes),
		Verifier:       verifier,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	jan.Stop(shutdownCtx)
}

// loadSigner reads the configured keystore, or creates a throwaway debug
// identity when none is set.
func loadSigner(cfg config.BuildConfig) (*build.Signer, error) {
	if cfg.KeystorePath != "" {
		return build.LoadKeystoreFile(cfg.KeystorePath, cfg.KeystorePassword)
	}
	zap.L().Warn("no keystore configured; signing with an ephemeral debug key")
	return build.NewEphemeralSigner(cfg.KeyAlias)
}

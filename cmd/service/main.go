package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/cache"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/config"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	httpserver "github.com/santhoshmp/LearningPlanner-sub010/internal/http"
	adminctrl "github.com/santhoshmp/LearningPlanner-sub010/internal/http/controllers/admin"
	socialctrl "github.com/santhoshmp/LearningPlanner-sub010/internal/http/controllers/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/router"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	jwtx "github.com/santhoshmp/LearningPlanner-sub010/internal/jwt"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/metrics"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/rate"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/security/secretbox"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/memory"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/store/pg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// .env es opcional; en producción todo llega por el entorno real.
	_ = godotenv.Load()

	configPath := flag.String("config", "", "ruta del config YAML (default: LP_AUTH_CONFIG o config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "lp-auth",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	httperrors.SetProdMode(cfg.IsProd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	var da repository.DataAccess
	switch cfg.Storage.Driver {
	case "memory":
		log.Warn("using in-memory storage, data will not survive restarts")
		da = memory.New()
	default:
		store, err := pg.New(ctx, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		da = store
	}
	defer da.Close()

	// Cache para state/PKCE
	var cacheClient cache.Client
	if cfg.Cache.Kind == "redis" {
		cacheClient, err = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	} else {
		cacheClient = cache.NewMemory(cfg.StateTTL(), time.Minute)
	}
	defer cacheClient.Close()

	// Rate limiting para los endpoints públicos de social auth
	var limiter rate.Limiter
	if cfg.Social.RateLimit.Max > 0 {
		if cfg.Cache.Kind == "redis" {
			rc := rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			})
			defer func() { _ = rc.Close() }()
			limiter = rate.NewRedisLimiter(rc, cfg.Cache.Redis.Prefix+"rl:", cfg.Social.RateLimit.Max, cfg.RateLimitWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Social.RateLimit.Max, cfg.RateLimitWindow())
		}
	}

	// Cifrado de tokens en reposo
	cipher, err := secretbox.NewFromEnv()
	if err != nil {
		return fmt.Errorf("secretbox: %w", err)
	}

	// Sesiones propias
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, []byte(secret), cfg.AccessTTL(), cfg.RefreshTTL())

	// Providers sociales
	providerConfigs := map[providers.Provider]providers.Config{}
	for name, pc := range cfg.Social.Providers {
		p, err := providers.Parse(name)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		providerConfigs[p] = providers.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURI:  pc.RedirectURI,
			Scopes:       pc.Scopes,
			UsePKCE:      pc.UsePKCE,
		}
	}
	registry := providers.NewRegistry(providerConfigs)
	pkceStore := pkce.NewStore(cacheClient, cfg.StateTTL())

	// Services
	recorder := audit.NewRecorder(da)
	startSvc := svc.NewStartService(svc.StartDeps{Registry: registry, PKCE: pkceStore})
	reconcileSvc := svc.NewReconcileService(svc.ReconcileDeps{DA: da, Cipher: cipher, Audit: recorder})
	lifecycleSvc := svc.NewLifecycleService(svc.LifecycleDeps{
		DA:          da,
		Registry:    registry,
		Cipher:      cipher,
		Audit:       recorder,
		RefreshSkew: cfg.RefreshSkew(),
		Concurrency: cfg.Tokens.CleanupConcurrency,
	})

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	handler := router.New(router.Deps{
		Social: socialctrl.New(socialctrl.Deps{
			Start:     startSvc,
			Reconcile: reconcileSvc,
			Lifecycle: lifecycleSvc,
			Registry:  registry,
			PKCE:      pkceStore,
			Issuer:    issuer,
		}),
		Audit:       adminctrl.NewAuditController(recorder),
		Tokens:      adminctrl.NewTokensController(lifecycleSvc),
		Issuer:      issuer,
		AdminAPIKey: cfg.Server.AdminAPIKey,
		Metrics:     metricsHandler,
		RateLimiter: limiter,
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

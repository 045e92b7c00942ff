// cmd/web/main.go
//
// Strata – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (server-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load conf/global.yaml + STRATA_ env overlay; resolve `vault:` refs.
//
//  4. Open the control-plane DB and log the site count.
//
//  5. Connect Redis (or run cacheless) and the object store.
//
//  6. Wire resolver → access gate → static resolver → deployment and
//     site services → ingest pipeline, then hand everything to the
//     router.
//
//  7. Wrap with ForceHTTPS when configured and listen.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yanizio/strata/internal/cache"
	"github.com/yanizio/strata/internal/config"
	"github.com/yanizio/strata/internal/database"
	"github.com/yanizio/strata/internal/deployment"
	"github.com/yanizio/strata/internal/github"
	"github.com/yanizio/strata/internal/logger"
	"github.com/yanizio/strata/internal/middleware"
	"github.com/yanizio/strata/internal/requestinfo"
	"github.com/yanizio/strata/internal/server"
	"github.com/yanizio/strata/internal/site"
	"github.com/yanizio/strata/internal/static"
	"github.com/yanizio/strata/internal/storage"
	"github.com/yanizio/strata/internal/vault"
)

const serverEnvPath = "/usr/local/etc/strata/global.env"

// loadEnv prefers the server-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logOut, err := logger.New(cfg.Paths.Root, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer logOut.Sync() //nolint:errcheck

	//
	// ── 1.  Secrets ─────────────────────────────────────────────────────
	//
	var vc *vault.Client
	if os.Getenv("VAULT_ADDR") != "" {
		if vc, err = vault.New(ctx); err != nil {
			logOut.Fatalw("vault client", "err", err)
		}
	}
	dbPassword, err := vault.Resolve(ctx, vc, cfg.Database.Password)
	if err != nil {
		logOut.Fatalw("resolve database password", "err", err)
	}
	storageSecret, err := vault.Resolve(ctx, vc, cfg.Storage.SecretKey)
	if err != nil {
		logOut.Fatalw("resolve storage secret", "err", err)
	}

	//
	// ── 2.  Control-plane DB ────────────────────────────────────────────
	//
	dsn := strings.ReplaceAll(cfg.Database.DSN, "{password}", dbPassword)
	db, err := database.Open(dsn)
	if err != nil {
		logOut.Fatalw("connect control-plane db", "err", err)
	}
	defer db.Close()

	var siteCount int
	_ = db.Get(&siteCount, `SELECT COUNT(*) FROM site`)
	logOut.Infow("control-plane db online", "sites", siteCount)

	//
	// ── 3.  Cache and object store ──────────────────────────────────────
	//
	var cacheBackend cache.Cache = cache.Nop{}
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logOut.Fatalw("connect redis", "err", err)
		}
		defer redisCache.Close() //nolint:errcheck
		cacheBackend = redisCache
	} else {
		logOut.Warnw("redis addr empty; running cacheless")
	}

	objects, err := storage.NewS3(ctx,
		cfg.Storage.Endpoint, cfg.Storage.AccessKey, storageSecret,
		cfg.Storage.Bucket, cfg.Storage.UseSSL)
	if err != nil {
		logOut.Fatalw("connect object store", "err", err)
	}

	if cfg.GeoIP.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
			logOut.Warnw("geoip disabled", "err", err)
		}
	}

	//
	// ── 4.  Domain wiring ───────────────────────────────────────────────
	//
	siteRepo := site.NewRepository(db)
	resolver := site.NewResolver(siteRepo, cacheBackend, cfg.Platform.BaseDomain)
	evaluator := site.NewEvaluator(siteRepo, cacheBackend)
	sites := site.NewService(siteRepo, cacheBackend, objects)

	depRepo := deployment.NewRepository(db)
	deployments := deployment.NewService(depRepo, objects, cacheBackend)

	pipeline := github.NewPipeline(depRepo, objects, github.NewClient(cfg.GitHub.APIBaseURL), cacheBackend)

	handlers := server.NewHandlers(resolver, evaluator, sites, deployments,
		static.NewResolver(objects), pipeline)

	//
	// ── 5.  Serve ───────────────────────────────────────────────────────
	//
	var root http.Handler = handlers.Router()
	if cfg.HTTP.ForceHTTPS {
		root = middleware.ForceHTTPS(resolver, root)
	}

	srv := server.New(cfg.HTTP.ListenAddr, root)
	zap.S().Infow("listening", "addr", cfg.HTTP.ListenAddr, "base_domain", cfg.Platform.BaseDomain)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logOut.Fatalw("http server", "err", err)
	}
}

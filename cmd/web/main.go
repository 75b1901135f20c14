// cmd/web/main.go
//
// Chef site – HTTP entry point.
//
// Start-up
// --------
//
//  1. Console logger for the bootstrap phase.
//
//  2. Vault secrets when VAULT_ADDR is set (resolves `vault:` config refs);
//     the token is renewed until shutdown.
//
//  3. Load config (dotenv → conf/global.yaml → CHEF_ env), then switch to
//     the daily rotating file logger (tees to console in a TTY).
//
//  4. Open the store.  No DSN, or a store that stays down through the
//     retry budget, degrades to fixtures instead of exiting.
//
//  5. Settings store on the configured backend, fallback reader, and the
//     Instagram feed (seeded from the local snapshot when there is one).
//
//  6. chi router wrapped with ForceHTTPS, served until SIGINT/SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanizio/chefsite/internal/api"
	"github.com/yanizio/chefsite/internal/app"
	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/fallback"
	"github.com/yanizio/chefsite/internal/fixtures"
	"github.com/yanizio/chefsite/internal/instagram"
	"github.com/yanizio/chefsite/internal/localstore"
	"github.com/yanizio/chefsite/internal/logger"
	"github.com/yanizio/chefsite/internal/middleware"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/server"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/testimonial"
	"github.com/yanizio/chefsite/internal/user"
)

// lastGoodEntries bounds how many distinct public reads keep a stale copy.
const lastGoodEntries = 128

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	boot := logger.Console("info")

	//
	// ── 1.  Secrets and config ──────────────────────────────────────────
	//
	secrets, err := app.Secrets()
	if err != nil {
		boot.Fatalw("vault init", "err", err)
	}
	cfg, err := app.LoadConfig(ctx, secrets)
	if err != nil {
		boot.Fatalw("load config", "err", err)
	}
	if secrets != nil {
		go secrets.KeepAlive(ctx)
	}

	log, err := logger.New(cfg.Log.Dir, cfg.Log.Level, logger.IsTTY())
	if err != nil {
		boot.Fatalw("start logger", "err", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 2.  Store and repositories ──────────────────────────────────────
	//
	db := app.OpenStore(ctx, cfg.Database)
	defer db.Close()

	store, snap, err := app.SettingsStore(cfg.Settings, db)
	if err != nil {
		log.Fatalw("settings backend", "err", err)
	}

	fx, err := fixtures.Load()
	if err != nil {
		log.Fatalw("fixtures", "err", err)
	}

	events, categories := event.NewRepository(db), event.NewCategoryRepository(db)
	recipes, posts, testimonials := recipe.NewRepository(db), blog.NewRepository(db), testimonial.NewRepository(db)

	//
	// ── 3.  Instagram feed ──────────────────────────────────────────────
	//
	var seed instagram.Cache
	if snap != nil {
		if _, err := snap.Decode(localstore.KeyInstagramCache, &seed); err != nil {
			log.Warnw("instagram cache unreadable; starting empty", "err", err)
			seed = instagram.Cache{}
		}
	}
	feed := instagram.NewFeed(instagram.NewGraphFetcher(cfg.Instagram.Timeout), cfg.Instagram.CacheTTL, seed)

	//
	// ── 4.  Router and server ───────────────────────────────────────────
	//
	h := api.NewHandler(api.Deps{
		DB:           db,
		Content:      fallback.NewContent(fallback.NewReader(fx, lastGoodEntries), events, categories, recipes, posts, testimonials),
		Events:       events,
		Categories:   categories,
		Users:        user.NewRepository(db),
		Submissions:  submission.NewRepository(db),
		Recipes:      recipes,
		Posts:        posts,
		Testimonials: testimonials,
		Settings:     store,
		Instagram:    feed,
	})
	router := api.NewRouter(h, api.Options{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		HSTS:        cfg.HTTP.ForceHTTPS,
	})

	srv := server.New(cfg.HTTP.ListenAddr, middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, router), server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	log.Infow("site online",
		"addr", cfg.HTTP.ListenAddr,
		"database", db.Available(),
		"settings_backend", cfg.Settings.Backend)

	if err := server.Run(ctx, srv); err != nil {
		log.Errorw("http server", "err", err)
	}

	// Keep the feed across restarts when running on a local snapshot.
	if snap != nil {
		if err := snap.Set(localstore.KeyInstagramCache, feed.Snapshot()); err == nil {
			if err := snap.Save(); err != nil {
				log.Warnw("instagram cache not saved", "err", err)
			}
		}
	}
	log.Infow("site offline")
}

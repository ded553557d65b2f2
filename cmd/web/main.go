// cmd/web/main.go
//
// Trade site HTTP entry point.
//
// Start-up sequence
// -----------------
//
//  1. Console logger, then config (conf/.env → conf/global.yaml →
//     TRADE_* env → vault: references when VAULT_ADDR is set).
//
//  2. Daily rotating file logger (tees to console when running in a TTY).
//
//  3. Optional GeoLite2 database and optional MySQL submission log.
//
//  4. Mail sender (Gmail API when OAuth credentials are configured,
//     log-only otherwise) and the notification dispatcher.
//
//  5. Address lookup handle, loaded in the background with bounded
//     retries so the site serves immediately.
//
//  6. Form definitions, content pages, and the layout engine.
//
//  7. Router: request ID → real IP → recoverer → request info →
//     security headers → legacy redirects, then /metrics, /healthz,
//     /assets, and every registered component.  ForceHTTPS wraps the
//     whole tree.
//
//  8. Serve until SIGINT/SIGTERM, then drain in-flight bookings.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/component"
	"github.com/yanizio/tradesite/internal/config"
	"github.com/yanizio/tradesite/internal/content"
	"github.com/yanizio/tradesite/internal/database"
	"github.com/yanizio/tradesite/internal/form"
	"github.com/yanizio/tradesite/internal/logger"
	"github.com/yanizio/tradesite/internal/message"
	"github.com/yanizio/tradesite/internal/middleware"
	"github.com/yanizio/tradesite/internal/notify"
	"github.com/yanizio/tradesite/internal/places"
	"github.com/yanizio/tradesite/internal/requestinfo"
	"github.com/yanizio/tradesite/internal/routing"
	"github.com/yanizio/tradesite/internal/server"
	"github.com/yanizio/tradesite/internal/store"
	"github.com/yanizio/tradesite/internal/vault"
	"github.com/yanizio/tradesite/internal/view"

	_ "github.com/yanizio/tradesite/components/booking"
	_ "github.com/yanizio/tradesite/components/pages"
	_ "github.com/yanizio/tradesite/components/places"
)

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func main() {
	logger.Console()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		zap.S().Fatalw("web: exit", "err", err)
	}
}

func run(ctx context.Context) error {
	//
	// ── 1.  Config ──────────────────────────────────────────────────────
	//
	var resolve config.Resolver
	if os.Getenv("VAULT_ADDR") != "" {
		vc, err := vault.New(ctx, vault.Options{Renew: true})
		if err != nil {
			return fmt.Errorf("vault: %w", err)
		}
		resolve = vc.Resolve
	}
	cfg, err := config.Load(ctx, resolve)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	root := cfg.Paths.Root

	//
	// ── 2.  File logger ─────────────────────────────────────────────────
	//
	log, err := logger.New(root, runningInTTY())
	if err != nil {
		return fmt.Errorf("start logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	//
	// ── 3.  Optional GeoIP + submission log ─────────────────────────────
	//
	if cfg.Geo.DBPath != "" {
		if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
			log.Warnw("geoip disabled", "path", cfg.Geo.DBPath, "err", err)
		} else {
			defer func() { _ = requestinfo.CloseGeo() }()
		}
	}

	var (
		db  *sqlx.DB
		rec notify.Recorder
	)
	if cfg.Database.Enabled() {
		db, err = database.OpenWithOptions(ctx, cfg.Database.ConnString(), cfg.Database.MaxOpen, cfg.Database.MaxIdle)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := migrate(ctx, db); err != nil {
			return err
		}
		rec = store.NewRepo(db)
		log.Infow("submission log online")
	} else {
		log.Infow("submission log disabled (database.dsn empty)")
	}

	//
	// ── 4.  Mail ────────────────────────────────────────────────────────
	//
	sender, err := newSender(ctx, cfg.Mail)
	if err != nil {
		return err
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
		}
	}
	dispatcher := notify.New(sender, notify.Config{
		AdminTo:       cfg.Mail.AdminTo,
		From:          cfg.Mail.From,
		Business:      cfg.Mail.Business,
		BusinessPhone: cfg.Mail.BusinessPhone,
		Location:      loc,
	}, rec)

	//
	// ── 5.  Address lookup (background load) ────────────────────────────
	//
	lookup := places.NewHandle(places.GoogleLoader(places.GoogleConfig{
		APIKey:   cfg.Places.APIKey,
		Country:  cfg.Places.Country,
		CacheTTL: cfg.Places.CacheTTL,
	}), places.WithRetry(cfg.Places.Attempts, cfg.Places.Delay))
	go func() {
		if err := lookup.Init(ctx); err != nil {
			log.Warnw("address lookup unavailable, manual entry only", "err", err)
		}
	}()

	//
	// ── 6.  Forms, content, layout ──────────────────────────────────────
	//
	if err := form.LoadFS(os.DirFS(filepath.Join(root, "forms"))); err != nil {
		return fmt.Errorf("forms: %w", err)
	}
	site, err := content.LoadFS(os.DirFS(filepath.Join(root, "content")))
	if err != nil {
		return err
	}
	engine, err := view.New(view.Site{
		Business: cfg.Mail.Business,
		Phone:    cfg.Mail.BusinessPhone,
	}, os.DirFS(filepath.Join(root, "templates")))
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	//
	// ── 7.  Router ──────────────────────────────────────────────────────
	//
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(requestinfo.Enrich, middleware.Security)

	redirects := routing.NewRedirects(db, routing.DefaultTTL, cfg.RedirectMap())
	if err := redirects.Load(ctx); err != nil {
		log.Warnw("redirect table unavailable", "err", err)
	}
	r.Use(routing.Middleware(redirects))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "ok places=%s\n", lookup.State())
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/",
		http.FileServer(http.Dir(filepath.Join(root, "assets")))))

	err = component.Mount(r, component.Deps{
		Config:     cfg,
		DB:         db,
		Dispatcher: dispatcher,
		Places:     lookup,
		Tokens:     form.NewTokens(cfg.Security.CSRFKey),
		Content:    site,
		Limiter:    middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		View:       engine,
	})
	if err != nil {
		return err
	}

	//
	// ── 8.  Serve ───────────────────────────────────────────────────────
	//
	ln, err := net.Listen("tcp", cfg.HTTP.ListenAddr)
	if err != nil {
		return err
	}
	srv := server.New(cfg.HTTP.ListenAddr, middleware.ForceHTTPS(cfg.HTTP.ForceHTTPS, r))
	if err := server.Run(ctx, srv, ln, server.ShutdownGrace); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Infow("web: stopped")
	return nil
}

// migrate applies every component's DDL.  Statements are idempotent.
func migrate(ctx context.Context, db *sqlx.DB) error {
	for _, ddl := range component.Migrations() {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func newSender(ctx context.Context, m config.Mail) (message.Sender, error) {
	if m.Gmail.ClientID == "" {
		zap.S().Warnw("gmail not configured, emails are logged only")
		return message.LogSender{}, nil
	}
	s, err := message.NewGmailSender(ctx, message.GmailConfig{
		ClientID:     m.Gmail.ClientID,
		ClientSecret: m.Gmail.ClientSecret,
		RefreshToken: m.Gmail.RefreshToken,
		From:         m.From,
	})
	if err != nil {
		return nil, fmt.Errorf("gmail: %w", err)
	}
	return s, nil
}

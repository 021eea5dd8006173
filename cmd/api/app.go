package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"samplebook/internal/apply"
	"samplebook/internal/book"
	"samplebook/internal/cart"
	"samplebook/internal/config"
	"samplebook/internal/email"
	"samplebook/internal/httpx"
	"samplebook/internal/platform/sheets"
	"samplebook/internal/request"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const (
	maxCartSessions = 10000
	flowTTL         = 2 * time.Hour
	auditTimeout    = 3 * time.Second
)

// app owns the long-lived dependencies of the API server.
type app struct {
	cfg    *config.Config
	ctx    context.Context
	carts  *cart.SQLiteStorage
	db     *pgxpool.Pool
	router *http.ServeMux
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, ctx: ctx, router: http.NewServeMux()}

	catalogClient := sheets.NewClient(cfg.CatalogURL, cfg.SheetsRPS, cfg.SheetsTimeout)
	emailClient := sheets.NewClient(cfg.EmailURL, cfg.SheetsRPS, cfg.SheetsTimeout)
	requestClient := sheets.NewClient(cfg.RequestURL, cfg.SheetsRPS, cfg.SheetsTimeout)
	for name, c := range map[string]*sheets.Client{"catalog": catalogClient, "email": emailClient, "request": requestClient} {
		if c.BaseURL() == "" {
			log.Warn().Str("sheet", name).Msg("sheet URL not configured, calls will fail over to fallback data")
		}
	}

	storage, err := cart.OpenSQLiteStorage(ctx, cfg.CartDBPath)
	if err != nil {
		return nil, fmt.Errorf("open cart storage: %w", err)
	}
	a.carts = storage

	var audit request.AuditLog
	if cfg.DBDSN != "" {
		pool, err := openAuditDB(ctx, cfg.DBDSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect audit db (%s): %w", redactDSN(cfg.DBDSN), err)
		}
		a.db = pool
		audit = request.NewPostgresAudit(pool, auditTimeout)
		log.Info().Msg("audit database connection OK")
	}

	tokens := email.NewTokenIssuer(cfg.VerificationSecret, cfg.VerificationTTL)

	books := book.NewService(book.NewSheetRepo(catalogClient))
	emails := email.NewService(email.NewSheetRepo(emailClient))
	submitter := request.NewSubmitter(request.NewSheetRepo(requestClient), audit, tokens)

	book.NewHTTPHandler(books).Routes(a.router)
	email.NewHTTPHandler(emails, tokens).Routes(a.router)
	request.NewHTTPHandler(submitter, books).Routes(a.router)
	cart.NewHTTPHandler(cart.NewRegistry(storage, maxCartSessions), books, submitter).Routes(a.router)
	apply.NewHTTPHandler(apply.NewFlows(tokens, flowTTL), emails, books, submitter).Routes(a.router)

	a.router.HandleFunc("GET /healthz", a.healthz)
	a.router.HandleFunc("GET /readyz", a.readyz)
	return a, nil
}

// Handler wraps the router in the middleware chain.
func (a *app) Handler() http.Handler {
	rl := httpx.NewRateLimitMiddleware(a.ctx, a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
	return httpx.Chain(a.router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeaders(a.cfg.EnableHSTS),
		httpx.CORSMiddleware(a.cfg.CORSOrigins),
		rl.Middleware,
		httpx.RequestSizeLimitMiddleware(a.cfg.MaxBodyBytes),
	)
}

func (a *app) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *app) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := a.carts.Ping(ctx); err != nil {
		http.Error(w, "cart storage not ready", http.StatusServiceUnavailable)
		return
	}
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.carts != nil {
		if err := a.carts.Close(); err != nil {
			log.Warn().Err(err).Msg("close cart storage")
		}
	}
}

// Package api is the HTTP layer. Handlers are methods on *Server, one file
// per resource.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
	"github.com/nyashahama/vitality-blueprint-backend/internal/email"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
	stripeinternal "github.com/nyashahama/vitality-blueprint-backend/internal/stripe"
	"github.com/nyashahama/vitality-blueprint-backend/internal/worker"
)

// Config holds the settings the handlers read.
type Config struct {
	// BaseURL is the public origin, e.g. "https://app.vitalityblueprint.com".
	// In production it is also the only CORS origin allowed.
	BaseURL string

	StripeWebhookSecret string

	PriceCents int64  // default 4900
	Currency   string // default "usd"

	Env string // "production", "staging" or "development"
}

// Store is the set of multi-step writes the handlers need.
type Store interface {
	CreateAssessment(ctx context.Context, p store.CreateAssessmentParams) (db.Assessment, error)
	AttachPaymentIntent(ctx context.Context, p store.AttachPaymentIntentParams) (db.Assessment, error)
	MarkPaid(ctx context.Context, stripePaymentIntent string) (db.Assessment, error)
}

// Server carries the handler dependencies.
type Server struct {
	q      db.Querier
	store  Store
	rules  *ruleset.Ruleset
	stripe stripeinternal.Client
	worker worker.Enqueuer
	mailer email.Sender

	cfg    Config
	logger *slog.Logger
}

// NewServer wires the router. The returned handler is ready for http.Server.
func NewServer(
	q db.Querier,
	st Store,
	rules *ruleset.Ruleset,
	stripeClient stripeinternal.Client,
	enqueuer worker.Enqueuer,
	mailer email.Sender,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	if cfg.PriceCents <= 0 {
		cfg.PriceCents = 4900
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}

	s := &Server{
		q:      q,
		store:  st,
		rules:  rules,
		stripe: stripeClient,
		worker: enqueuer,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Anonymous. The access token returned on create is the only
		// credential.
		r.Post("/assessments", s.handleCreateAssessment)
		r.Post("/assessments/preview", s.handlePreviewAssessment)
		r.Post("/assessments/{assessmentID}/checkout", s.handleCreateCheckout)

		r.Get("/rules", s.handleGetRules)

		// Signature checked in the handler.
		r.Post("/webhooks/stripe", s.handleStripeWebhook)

		r.Get("/blueprint/{accessToken}", s.handleGetBlueprint)
	})

	return r
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":        "ok",
		"rules_version": s.rules.Version,
	})
}

// ─── GET /api/rules ───────────────────────────────────────────────────────────

// handleGetRules reports the active rule table so clients can tell which
// version a stored result was scored with.
func (s *Server) handleGetRules(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, s.rules.Summary())
}

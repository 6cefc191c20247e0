package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
	stripeinternal "github.com/nyashahama/vitality-blueprint-backend/internal/stripe"
)

// ─── POST /api/assessments/:assessmentID/checkout ─────────────────────────────

type createCheckoutRequest struct {
	Email string `json:"email"`
}

type createCheckoutResponse struct {
	// ClientSecret is handed to Stripe.js to confirm the payment.
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	// IsExisting is set when checkout was already opened for this assessment.
	IsExisting bool `json:"is_existing,omitempty"`
}

// handleCreateCheckout opens a PaymentIntent for a scored assessment and
// returns its client_secret. Reopening checkout returns the secret of the
// intent already attached, so the browser can retry freely.
func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	assessmentID, err := uuid.Parse(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, r, http.StatusBadRequest, "invalid assessment_id")
		return
	}

	var req createCheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}
	email, ok := normalizeEmail(req.Email)
	if !ok {
		respondErr(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}

	a, err := s.q.GetAssessmentByID(ctx, assessmentID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, r, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}
	if a.Status != db.AssessmentStatusScored {
		respondErr(w, r, http.StatusConflict, "assessment is already paid")
		return
	}
	if pi := a.StripePaymentIntent; pi.Valid && pi.String != "" {
		s.respondExistingCheckout(w, r, pi.String)
		return
	}

	// ── 1. PaymentIntent ──────────────────────────────────────────────────────
	// Same assessment and email within Stripe's idempotency window reuse the
	// same intent.
	pi, err := s.stripe.CreatePaymentIntent(ctx, stripeinternal.CreatePaymentIntentParams{
		AmountCents: s.cfg.PriceCents,
		Currency:    s.cfg.Currency,
		Email:       email,
		Metadata: map[string]string{
			stripeinternal.MetadataAssessmentID: assessmentID.String(),
		},
		IdempotencyKey: "checkout:" + assessmentID.String() + ":" + email,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create payment intent: %w", err))
		return
	}

	// ── 2. Attach ─────────────────────────────────────────────────────────────
	winner, err := s.store.AttachPaymentIntent(ctx, store.AttachPaymentIntentParams{
		AssessmentID:        assessmentID,
		StripeCustomerID:    pi.CustomerID,
		StripePaymentIntent: pi.ID,
		Email:               email,
	})
	switch {
	case errors.Is(err, store.ErrPaymentIntentAlreadyAttached):
		// A concurrent checkout attached first; ours expires unused.
		s.logger.Info("checkout: concurrent attach, using existing intent",
			"assessment_id", assessmentID,
			"discarded_intent", pi.ID,
			requestAttr(r),
		)
		s.respondExistingCheckout(w, r, winner.StripePaymentIntent.String)
		return
	case err != nil:
		s.respondInternalErr(w, r, fmt.Errorf("attach payment intent: %w", err))
		return
	}

	respond(w, http.StatusOK, createCheckoutResponse{
		ClientSecret: pi.ClientSecret,
		AmountCents:  s.cfg.PriceCents,
		Currency:     s.cfg.Currency,
	})
}

// respondExistingCheckout answers with the client_secret of an intent that is
// already attached to the assessment.
func (s *Server) respondExistingCheckout(w http.ResponseWriter, r *http.Request, paymentIntentID string) {
	secret, err := s.stripe.GetClientSecret(r.Context(), paymentIntentID)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get client secret %s: %w", paymentIntentID, err))
		return
	}
	respond(w, http.StatusOK, createCheckoutResponse{
		ClientSecret: secret,
		AmountCents:  s.cfg.PriceCents,
		Currency:     s.cfg.Currency,
		IsExisting:   true,
	})
}

// normalizeEmail accepts a bare address or "Name <addr>" and returns the
// lower-cased address.
func normalizeEmail(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

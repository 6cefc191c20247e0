package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
	"github.com/nyashahama/vitality-blueprint-backend/internal/email"
	"github.com/nyashahama/vitality-blueprint-backend/internal/store"
	stripeinternal "github.com/nyashahama/vitality-blueprint-backend/internal/stripe"
)

const maxWebhookBody = 64 << 10

// eventHandler acts on one verified, first-seen Stripe event.
type eventHandler func(r *http.Request, event stripeinternal.Event, obj stripeinternal.Object) error

func (s *Server) eventHandlers() map[string]eventHandler {
	return map[string]eventHandler{
		"payment_intent.succeeded":      s.onPaymentSucceeded,
		"payment_intent.payment_failed": s.onPaymentFailed,
		"charge.refunded":               s.onChargeRefunded,
	}
}

// ─── POST /api/webhooks/stripe ────────────────────────────────────────────────

// handleStripeWebhook verifies and dispatches a Stripe delivery.
//
// Stripe delivers at-least-once and retries on non-2xx, so every step is
// idempotent: the event id is recorded first and a replay is acknowledged
// without being handled again.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	// ── 1. Read the exact signed bytes ────────────────────────────────────────
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		respondErr(w, r, http.StatusBadRequest, "could not read request body")
		return
	}

	// ── 2. Verify the Stripe-Signature header ─────────────────────────────────
	event, err := s.stripe.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"), s.cfg.StripeWebhookSecret)
	if err != nil {
		s.logger.Warn("webhook: invalid signature", "error", err, requestAttr(r))
		respondErr(w, r, http.StatusBadRequest, "invalid webhook signature")
		return
	}
	log := s.logger.With("event_id", event.ID, "type", event.Type, requestAttr(r))

	handle, ok := s.eventHandlers()[event.Type]
	if !ok {
		log.Debug("webhook: ignoring event type")
		w.WriteHeader(http.StatusOK)
		return
	}

	// ── 3. Record the event; a processed replay surfaces as sql.ErrNoRows ─────
	_, err = s.q.UpsertStripeEvent(r.Context(), stripeinternal.UpsertParams(event, payload))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("webhook: event already processed, skipping")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("upsert stripe event: %w", err))
		return
	}

	// ── 4. Handle ─────────────────────────────────────────────────────────────
	obj, err := stripeinternal.DecodeObject(event)
	if err == nil {
		err = handle(r, event, obj)
	}

	// ── 5. Record the outcome ─────────────────────────────────────────────────
	if err != nil {
		log.Error("webhook: handler error", "error", err)
		_, _ = s.q.MarkStripeEventFailed(r.Context(), stripeinternal.FailedParams(event.ID, err))
		// 500 so Stripe redelivers.
		respondErr(w, r, http.StatusInternalServerError, "webhook handler failed")
		return
	}
	_, _ = s.q.MarkStripeEventProcessed(r.Context(), event.ID)
	w.WriteHeader(http.StatusOK)
}

// ─── EVENT HANDLERS ───────────────────────────────────────────────────────────

// onPaymentSucceeded unlocks the assessment, sends the receipt and queues
// blueprint generation.
func (s *Server) onPaymentSucceeded(r *http.Request, event stripeinternal.Event, obj stripeinternal.Object) error {
	piID, err := obj.PaymentIntentID()
	if err != nil {
		return fmt.Errorf("payment succeeded: %w", err)
	}
	log := s.logger.With("event_id", event.ID, "pi_id", piID, requestAttr(r))

	a, err := s.store.MarkPaid(r.Context(), piID)
	switch {
	case errors.Is(err, store.ErrAlreadyPaid):
		// Replayed under a new event id. Re-enqueue in case the worker died
		// before finishing.
		if a.Status == db.AssessmentStatusPaid || a.Status == db.AssessmentStatusProcessing {
			log.Debug("webhook: already paid, re-enqueueing", "assessment_id", a.ID)
			_ = s.worker.Enqueue(r.Context(), a.ID)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows):
		log.Warn("webhook: payment for unknown payment intent")
		return nil
	case err != nil:
		return fmt.Errorf("payment succeeded: mark paid: %w", err)
	}
	log = log.With("assessment_id", a.ID)

	if metaID, err := obj.AssessmentID(); err == nil && metaID != uuid.Nil && metaID != a.ID {
		log.Warn("webhook: metadata assessment_id does not match payment intent owner",
			"metadata_assessment_id", metaID)
	}
	if obj.AmountReceived != 0 && (obj.AmountReceived < s.cfg.PriceCents || !strings.EqualFold(obj.Currency, s.cfg.Currency)) {
		log.Warn("webhook: amount received differs from price",
			"amount_received", obj.AmountReceived,
			"currency", obj.Currency,
			"price_cents", s.cfg.PriceCents,
		)
	}

	if a.Email.Valid && a.Email.String != "" {
		s.logEmailErr(r, s.mailer.SendReceipt(r.Context(), email.ReceiptParams{
			To:          a.Email.String,
			AmountCents: s.cfg.PriceCents,
			Currency:    s.cfg.Currency,
		}), "receipt")
	}

	if err := s.worker.Enqueue(r.Context(), a.ID); err != nil {
		log.Warn("webhook: enqueue failed, poller will pick it up", "error", err)
	}
	return nil
}

func (s *Server) onPaymentFailed(r *http.Request, _ stripeinternal.Event, obj stripeinternal.Object) error {
	piID, err := obj.PaymentIntentID()
	if err != nil {
		return fmt.Errorf("payment failed: %w", err)
	}

	_, err = s.q.MarkAssessmentPaymentFailed(r.Context(), sql.NullString{String: piID, Valid: true})
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("payment failed: mark failed: %w", err)
	}
	return nil
}

func (s *Server) onChargeRefunded(r *http.Request, event stripeinternal.Event, obj stripeinternal.Object) error {
	log := s.logger.With("event_id", event.ID, requestAttr(r))

	piID, err := obj.PaymentIntentID()
	if err != nil {
		// Refunds of charges made outside checkout carry nothing to revoke.
		log.Warn("webhook: refund without payment intent", "error", err)
		return nil
	}

	a, err := s.q.MarkAssessmentRefunded(r.Context(), sql.NullString{String: piID, Valid: true})
	if errors.Is(err, sql.ErrNoRows) {
		log.Warn("webhook: refund for unknown payment intent", "pi_id", piID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("charge refunded: mark refunded: %w", err)
	}

	log.Info("webhook: charge refunded", "assessment_id", a.ID)
	return nil
}

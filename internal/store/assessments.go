package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// CreateAssessmentParams is a scored submission ready to be stored. Input
// and Result are the JSON documents exactly as received and produced.
type CreateAssessmentParams struct {
	Persona          string
	Input            json.RawMessage
	Result           json.RawMessage
	ResultDigest     string
	RulesVersion     string
	RulesFingerprint string
}

// AttachPaymentIntentParams groups the Stripe and email fields written
// together when checkout is initiated.
type AttachPaymentIntentParams struct {
	AssessmentID        uuid.UUID
	StripeCustomerID    string
	StripePaymentIntent string
	Email               string
}

// PersistBlueprintParams is what the worker hands over once blueprint copy
// has been produced. Source names the provider chain link that wrote it
// ("default" or a provider name).
type PersistBlueprintParams struct {
	AssessmentID uuid.UUID
	Blueprint    json.RawMessage
	Source       string
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrPaymentIntentAlreadyAttached is returned when an assessment already has
// a Stripe PaymentIntent. The checkout handler returns the existing
// client_secret instead of creating a second PaymentIntent.
var ErrPaymentIntentAlreadyAttached = errors.New("store: payment intent already attached to assessment")

// ErrAlreadyPaid is returned by MarkPaid when the assessment has left the
// scored state. Duplicate payment_intent.succeeded deliveries land here.
var ErrAlreadyPaid = errors.New("store: assessment already paid")

// ErrNotPending is returned by PersistBlueprint when the assessment is not
// waiting for a blueprint (already ready, failed, or never paid).
var ErrNotPending = errors.New("store: assessment is not pending a blueprint")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// CreateAssessment stores a scored submission under a fresh access token.
func (s *Store) CreateAssessment(ctx context.Context, p CreateAssessmentParams) (db.Assessment, error) {
	token, err := NewAccessToken()
	if err != nil {
		return db.Assessment{}, err
	}

	a, err := s.q.CreateAssessment(ctx, db.CreateAssessmentParams{
		AccessToken:      token,
		Persona:          sql.NullString{String: p.Persona, Valid: p.Persona != ""},
		Input:            p.Input,
		Result:           p.Result,
		ResultDigest:     p.ResultDigest,
		RulesVersion:     p.RulesVersion,
		RulesFingerprint: p.RulesFingerprint,
	})
	if err != nil {
		return db.Assessment{}, fmt.Errorf("CreateAssessment: insert: %w", err)
	}
	return a, nil
}

// AttachPaymentIntent guards against double attachment of a PaymentIntent,
// then writes the customer ID, PI, and email.
//
// Two checkout calls racing for the same assessment both create a PI at
// Stripe; under serializable isolation only the first write commits and the
// second sees ErrPaymentIntentAlreadyAttached.
func (s *Store) AttachPaymentIntent(ctx context.Context, p AttachPaymentIntentParams) (db.Assessment, error) {
	var assessment db.Assessment

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetAssessmentByID(ctx, p.AssessmentID)
		if err != nil {
			return fmt.Errorf("AttachPaymentIntent: get assessment: %w", err)
		}

		if existing.StripePaymentIntent.Valid && existing.StripePaymentIntent.String != "" {
			assessment = existing
			return ErrPaymentIntentAlreadyAttached
		}

		updated, err := q.AttachStripeCustomer(ctx, db.AttachStripeCustomerParams{
			ID: p.AssessmentID,
			StripeCustomerID: sql.NullString{
				String: p.StripeCustomerID,
				Valid:  p.StripeCustomerID != "",
			},
			StripePaymentIntent: sql.NullString{
				String: p.StripePaymentIntent,
				Valid:  true,
			},
			Email: sql.NullString{
				String: p.Email,
				Valid:  p.Email != "",
			},
		})
		if err != nil {
			return fmt.Errorf("AttachPaymentIntent: attach stripe customer: %w", err)
		}

		assessment = updated
		return nil
	})

	if errors.Is(err, ErrPaymentIntentAlreadyAttached) {
		return assessment, ErrPaymentIntentAlreadyAttached
	}
	if err != nil {
		return db.Assessment{}, err
	}

	return assessment, nil
}

// MarkPaid is called by the webhook handler on payment_intent.succeeded.
// It moves the assessment from scored to paid. A second delivery for the
// same PI returns the current row with ErrAlreadyPaid so the caller can
// re-enqueue work that never finished.
func (s *Store) MarkPaid(ctx context.Context, stripePaymentIntent string) (db.Assessment, error) {
	var assessment db.Assessment

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		existing, err := q.GetAssessmentByPaymentIntent(ctx, sql.NullString{
			String: stripePaymentIntent,
			Valid:  true,
		})
		if err != nil {
			return fmt.Errorf("MarkPaid: get assessment: %w", err)
		}

		if existing.Status != db.AssessmentStatusScored {
			assessment = existing
			return ErrAlreadyPaid
		}

		paid, err := q.MarkAssessmentPaid(ctx, existing.ID)
		if err != nil {
			return fmt.Errorf("MarkPaid: update: %w", err)
		}

		assessment = paid
		return nil
	})

	if errors.Is(err, ErrAlreadyPaid) {
		return assessment, ErrAlreadyPaid
	}
	if err != nil {
		return db.Assessment{}, err
	}

	return assessment, nil
}

// PersistBlueprint claims the assessment for processing and stores the
// blueprint copy in one transaction, leaving it ready. If the claim fails
// because the row is no longer pending, ErrNotPending is returned and
// nothing is written.
func (s *Store) PersistBlueprint(ctx context.Context, p PersistBlueprintParams) (db.Assessment, error) {
	var assessment db.Assessment

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		if _, err := q.SetAssessmentProcessing(ctx, p.AssessmentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotPending
			}
			return fmt.Errorf("PersistBlueprint: set processing: %w", err)
		}

		ready, err := q.SetAssessmentBlueprint(ctx, db.SetAssessmentBlueprintParams{
			ID:              p.AssessmentID,
			Blueprint:       pqtype.NullRawMessage{RawMessage: p.Blueprint, Valid: len(p.Blueprint) > 0},
			BlueprintSource: sql.NullString{String: p.Source, Valid: p.Source != ""},
		})
		if err != nil {
			return fmt.Errorf("PersistBlueprint: set blueprint: %w", err)
		}

		assessment = ready
		return nil
	})
	if err != nil {
		return db.Assessment{}, err
	}

	return assessment, nil
}

// MarkBlueprintFailed sets the assessment to error after the worker has
// exhausted its retries, so the poller stops picking it up.
func (s *Store) MarkBlueprintFailed(ctx context.Context, assessmentID uuid.UUID, reason string) (db.Assessment, error) {
	a, err := s.q.SetAssessmentError(ctx, db.SetAssessmentErrorParams{
		ID:           assessmentID,
		ErrorMessage: sql.NullString{String: reason, Valid: reason != ""},
	})
	if err != nil {
		return db.Assessment{}, fmt.Errorf("MarkBlueprintFailed: %w", err)
	}
	return a, nil
}

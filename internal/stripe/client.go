// Package stripe defines the interface for Stripe API calls and webhook
// verification, and the event helpers used by the api package.
package stripe

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nyashahama/vitality-blueprint-backend/internal/db"
)

// MetadataAssessmentID is the PaymentIntent metadata key that carries the
// assessment the payment unlocks.
const MetadataAssessmentID = "assessment_id"

// ─── TYPES ────────────────────────────────────────────────────────────────────

// CreatePaymentIntentParams holds the inputs for creating a Stripe PI.
type CreatePaymentIntentParams struct {
	AmountCents int64
	Currency    string
	Email       string
	Metadata    map[string]string

	// IdempotencyKey makes retries of the same checkout reuse one Customer
	// and one PaymentIntent. Optional.
	IdempotencyKey string
}

// PaymentIntent is the subset of a Stripe PaymentIntent that callers need.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	CustomerID   string // empty when no Customer was created
}

// Event is a parsed Stripe webhook event. DataRaw holds the raw JSON of the
// event's data.object.
type Event struct {
	ID      string
	Type    string
	DataRaw json.RawMessage
}

// ─── CLIENT INTERFACE ─────────────────────────────────────────────────────────

// Client is what the api package uses for all Stripe calls. The concrete
// implementation wraps stripe-go; tests inject a stub.
type Client interface {
	// CreatePaymentIntent creates a new PI and returns its client_secret.
	CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error)

	// GetClientSecret retrieves the client_secret of an existing PI. Used
	// when checkout is opened twice for the same assessment.
	GetClientSecret(ctx context.Context, paymentIntentID string) (string, error)

	// VerifyWebhook validates the Stripe-Signature header and returns the
	// parsed event.
	VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error)
}

// ─── EVENT HELPERS ────────────────────────────────────────────────────────────

// UpsertParams records a verified event for idempotency.
func UpsertParams(event Event, rawPayload []byte) db.UpsertStripeEventParams {
	return db.UpsertStripeEventParams{
		StripeEventID: event.ID,
		Type:          event.Type,
		Payload:       json.RawMessage(rawPayload),
	}
}

// FailedParams records the handler error for an event.
func FailedParams(eventID string, err error) db.MarkStripeEventFailedParams {
	return db.MarkStripeEventFailedParams{
		StripeEventID: eventID,
		Error:         sql.NullString{String: err.Error(), Valid: true},
	}
}

// Object is the part of an event's data.object the webhook handler reads.
// It covers both payment_intent and charge objects.
type Object struct {
	ID             string            `json:"id"`
	Kind           string            `json:"object"`
	PaymentIntent  string            `json:"payment_intent"` // charges only
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"` // payment intents only
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

// DecodeObject parses event.DataRaw.
func DecodeObject(event Event) (Object, error) {
	var obj Object
	if err := json.Unmarshal(event.DataRaw, &obj); err != nil {
		return Object{}, fmt.Errorf("stripe: decode data.object of %s: %w", event.ID, err)
	}
	return obj, nil
}

// PaymentIntentID is the PaymentIntent the object concerns: the object
// itself for a payment_intent, the linked intent for a charge.
func (o Object) PaymentIntentID() (string, error) {
	id := o.ID
	if o.Kind == "charge" {
		id = o.PaymentIntent
	}
	if id == "" {
		return "", fmt.Errorf("stripe: no payment intent id on %s object", kindOrUnknown(o.Kind))
	}
	return id, nil
}

// AssessmentID reads the assessment id from metadata. It is uuid.Nil without
// error when the key is absent, as for PaymentIntents created outside
// checkout.
func (o Object) AssessmentID() (uuid.UUID, error) {
	raw := o.Metadata[MetadataAssessmentID]
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("stripe: bad %s %q: %w", MetadataAssessmentID, raw, err)
	}
	return id, nil
}

func kindOrUnknown(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}

package stripe

import (
	"context"
	"fmt"
	"maps"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ProductName tags every PaymentIntent this service creates.
const ProductName = "vitality_blueprint"

type stripeClient struct {
	sc *stripe.Client
}

// NewClient returns a Client backed by its own stripe-go client, so no
// package-level key is shared.
func NewClient(secretKey string) Client {
	return &stripeClient{sc: stripe.NewClient(secretKey)}
}

// CreatePaymentIntent creates a Customer for the buyer and a PaymentIntent
// against it. When p.IdempotencyKey is set, Stripe replays the first
// response for repeated calls with the same key.
func (c *stripeClient) CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (PaymentIntent, error) {
	custParams := &stripe.CustomerCreateParams{
		Email: stripe.String(p.Email),
	}
	if p.IdempotencyKey != "" {
		custParams.SetIdempotencyKey(p.IdempotencyKey + ":customer")
	}
	cust, err := c.sc.V1Customers.Create(ctx, custParams)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe: create customer: %w", err)
	}

	meta := maps.Clone(p.Metadata)
	if meta == nil {
		meta = map[string]string{}
	}
	meta["product"] = ProductName

	piParams := &stripe.PaymentIntentCreateParams{
		Amount:       stripe.Int64(p.AmountCents),
		Currency:     stripe.String(p.Currency),
		Customer:     stripe.String(cust.ID),
		ReceiptEmail: stripe.String(p.Email),
		Description:  stripe.String("Vitality Blueprint"),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: meta,
	}
	if p.IdempotencyKey != "" {
		piParams.SetIdempotencyKey(p.IdempotencyKey + ":payment_intent")
	}

	pi, err := c.sc.V1PaymentIntents.Create(ctx, piParams)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		CustomerID:   cust.ID,
	}, nil
}

// GetClientSecret retrieves the client_secret of an existing PaymentIntent.
func (c *stripeClient) GetClientSecret(ctx context.Context, paymentIntentID string) (string, error) {
	pi, err := c.sc.V1PaymentIntents.Retrieve(ctx, paymentIntentID, nil)
	if err != nil {
		return "", fmt.Errorf("stripe: get payment intent %s: %w", paymentIntentID, err)
	}
	return pi.ClientSecret, nil
}

// VerifyWebhook checks the Stripe-Signature header against secret and the
// SDK's default 300-second tolerance, then returns the event.
func (c *stripeClient) VerifyWebhook(payload []byte, sigHeader string, secret string) (Event, error) {
	ev, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return Event{}, fmt.Errorf("stripe: webhook verification failed: %w", err)
	}
	return Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		DataRaw: ev.Data.Raw,
	}, nil
}

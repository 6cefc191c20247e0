// Package email defines the interface for transactional email delivery and
// provides a Resend-backed implementation.
package email

import "context"

// BlueprintReadyParams holds the data for the blueprint delivery email.
type BlueprintReadyParams struct {
	To          string // recipient email address
	AccessToken string // opaque token inserted into the blueprint URL
	Banner      string // safety banner, rendered verbatim when present
}

// ReceiptParams holds the data for the post-payment receipt email.
type ReceiptParams struct {
	To          string
	AmountCents int64  // e.g. 4900 for $49.00
	Currency    string // e.g. "usd"
}

// Sender is what the worker and webhook handler use to send email.
// Tests inject a stub that records calls.
type Sender interface {
	// SendBlueprintReady sends the "your blueprint is ready" email with the
	// access link. Called by the worker after PersistBlueprint succeeds.
	SendBlueprintReady(ctx context.Context, p BlueprintReadyParams) error

	// SendReceipt sends the payment receipt. Called by the webhook handler
	// on payment confirmation, before the blueprint is generated.
	SendReceipt(ctx context.Context, p ReceiptParams) error
}

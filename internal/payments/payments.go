// Package payments abstracts the external payment-processor capability.
// The live implementation talks to a Stripe-style REST API; the
// simulated implementation synthesizes intents locally so the donation
// flow can be exercised without payment credentials.
package payments

import (
	"context"
	"fmt"
)

// IntentRequest describes a payment intent to be created.
type IntentRequest struct {
	AmountMinor    int64             // minor currency units (cents)
	Currency       string            // ISO 4217 lowercase, e.g. "usd"
	Metadata       map[string]string // attribution metadata, e.g. {"artist": name}
	IdempotencyKey string            // optional, forwarded verbatim to the processor
}

// Intent is the processor's representation of a pending or settled charge.
type Intent struct {
	Reference    string // processor-assigned identifier
	ClientSecret string // confirmation token; empty for simulated intents
	Status       string // requires_confirmation | succeeded | failed
	AmountMinor  int64
	Currency     string
}

// Processor creates payment intents. Implementations must be safe for
// concurrent use.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
}

// APIError reports a processor-side rejection or transport failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment processor error (status %d): %s", e.StatusCode, e.Message)
	}
	return "payment processor error: " + e.Message
}

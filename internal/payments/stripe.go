package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const defaultStripeBaseURL = "https://api.stripe.com/v1"

// StripeClient implements Processor against the Stripe REST API.
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// StripeOption configures a StripeClient.
type StripeOption func(*StripeClient)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) StripeOption {
	return func(c *StripeClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) StripeOption {
	return func(c *StripeClient) {
		c.httpClient = client
	}
}

// NewStripeClient creates a Stripe-backed processor.
func NewStripeClient(secretKey string, opts ...StripeOption) *StripeClient {
	c := &StripeClient{
		secretKey:  secretKey,
		baseURL:    defaultStripeBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateIntent creates a payment intent at the processor.
func (c *StripeClient) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, span := otel.Tracer("fairplay-api").Start(ctx, "stripe.CreateIntent")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("payment.amount_minor", req.AmountMinor),
		attribute.String("payment.currency", req.Currency),
	)

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", req.Currency)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "request failed"}
		var body stripeErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr == nil && body.Error.Message != "" {
			apiErr.Message = body.Error.Message
		}
		return nil, apiErr
	}

	var intent stripeIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &Intent{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		AmountMinor:  intent.Amount,
		Currency:     intent.Currency,
	}, nil
}

// Stripe API response structures

type stripeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fairplay-api/internal/events"
	"fairplay-api/internal/models"
	"fairplay-api/internal/payments"
	"fairplay-api/internal/validation"
)

// Donations are charged in a single fixed currency; no currency
// negotiation exists.
const (
	donationCurrency = "usd"
	minorUnitsFactor = 100
)

// DonationService orchestrates the creation of payment intents for
// artist donations. It is stateless per call: receipts are returned to
// the caller and never stored.
type DonationService struct {
	live      payments.Processor
	simulated payments.Processor
	events    *events.Manager
	logger    zerolog.Logger
	timeout   time.Duration
}

// NewDonationService creates a donation service. The live and simulated
// processors implement the same contract; the request's mode selects
// between them.
func NewDonationService(live, simulated payments.Processor, evts *events.Manager, logger zerolog.Logger, timeout time.Duration) *DonationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DonationService{
		live:      live,
		simulated: simulated,
		events:    evts,
		logger:    logger,
		timeout:   timeout,
	}
}

// CreateDonation validates the request and produces a payment-intent
// receipt. Validation failures are reported without any external call.
// Repeated identical requests create independent intents unless the
// request carries an idempotency key.
func (s *DonationService) CreateDonation(ctx context.Context, req models.DonationRequest) (*models.DonationReceipt, error) {
	req.ArtistName = validation.SanitizeString(req.ArtistName)

	if err := validation.ValidateDonation(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	processor := s.live
	if req.Mode == models.ModeSimulated {
		processor = s.simulated
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	amountMinor := req.Amount * minorUnitsFactor
	intent, err := processor.CreateIntent(ctx, payments.IntentRequest{
		AmountMinor:    amountMinor,
		Currency:       donationCurrency,
		Metadata:       map[string]string{"artist": req.ArtistName},
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &UpstreamTimeout{Op: "payment intent creation", Err: err}
		}
		s.logger.Error().Err(err).Str("artist", req.ArtistName).Msg("payment intent creation failed")
		return nil, &ProcessorError{Message: processorMessage(err), Err: err}
	}

	receipt := &models.DonationReceipt{
		Reference:    intent.Reference,
		ClientSecret: intent.ClientSecret,
		Status:       models.DonationStatus(intent.Status),
		ArtistName:   req.ArtistName,
		AmountMinor:  amountMinor,
	}
	if req.Mode == models.ModeSimulated {
		receipt.Message = fmt.Sprintf("Thank you for supporting %s with your $%d donation!", req.ArtistName, req.Amount)
	}

	s.logger.Info().
		Str("artist", req.ArtistName).
		Int64("amount_minor", amountMinor).
		Str("reference", receipt.Reference).
		Bool("simulated", req.Mode == models.ModeSimulated).
		Msg("donation created")

	s.events.PublishDonation(ctx, events.DonationData{
		ArtistName:  req.ArtistName,
		AmountMinor: amountMinor,
		Reference:   receipt.Reference,
		Simulated:   req.Mode == models.ModeSimulated,
	})

	return receipt, nil
}

// processorMessage extracts the processor's own message when the error
// came back from its API, falling back to the raw error text.
func processorMessage(err error) string {
	var apiErr *payments.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return strings.TrimSpace(err.Error())
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fairplay-api/internal/events"
	"fairplay-api/internal/models"
	"fairplay-api/internal/payments"
)

// fakeProcessor records calls so tests can assert that validation
// failures never reach the processor.
type fakeProcessor struct {
	calls   int
	lastReq payments.IntentRequest
	intent  *payments.Intent
	err     error
}

func (f *fakeProcessor) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.intent, nil
}

func setupDonationService(live, simulated payments.Processor) *DonationService {
	return NewDonationService(live, simulated, events.NewManager(false), zerolog.Nop(), 5*time.Second)
}

func TestCreateDonation_Live(t *testing.T) {
	live := &fakeProcessor{intent: &payments.Intent{
		Reference:    "pi_123",
		ClientSecret: "pi_123_secret",
		Status:       "requires_confirmation",
	}}
	simulated := &fakeProcessor{}
	svc := setupDonationService(live, simulated)

	receipt, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName: "Test Artist",
		Amount:     5,
		Mode:       models.ModeLive,
	})
	if err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	if live.calls != 1 {
		t.Errorf("Expected 1 live processor call, got %d", live.calls)
	}
	if simulated.calls != 0 {
		t.Errorf("Expected 0 simulated processor calls, got %d", simulated.calls)
	}
	if live.lastReq.AmountMinor != 500 {
		t.Errorf("Expected processor to receive 500 minor units, got %d", live.lastReq.AmountMinor)
	}
	if live.lastReq.Currency != "usd" {
		t.Errorf("Expected currency usd, got '%s'", live.lastReq.Currency)
	}
	if live.lastReq.Metadata["artist"] != "Test Artist" {
		t.Errorf("Expected artist metadata, got '%s'", live.lastReq.Metadata["artist"])
	}

	if receipt.ClientSecret != "pi_123_secret" {
		t.Errorf("Expected client secret from processor, got '%s'", receipt.ClientSecret)
	}
	if receipt.Status != models.StatusRequiresConfirmation {
		t.Errorf("Expected status requires_confirmation, got '%s'", receipt.Status)
	}
}

func TestCreateDonation_Simulated(t *testing.T) {
	live := &fakeProcessor{}
	svc := setupDonationService(live, payments.NewSimulatedProcessor())

	receipt, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName: "Test Artist",
		Amount:     10,
		Mode:       models.ModeSimulated,
	})
	if err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	if live.calls != 0 {
		t.Errorf("Expected 0 live processor calls, got %d", live.calls)
	}
	if receipt.Status != models.StatusSucceeded {
		t.Errorf("Expected status succeeded, got '%s'", receipt.Status)
	}
	if receipt.ClientSecret != "" {
		t.Errorf("Expected no client secret in simulated mode, got '%s'", receipt.ClientSecret)
	}
	if !strings.Contains(receipt.Message, "Test Artist") {
		t.Errorf("Expected message to contain artist name, got '%s'", receipt.Message)
	}
	if !strings.Contains(receipt.Message, "10") {
		t.Errorf("Expected message to contain amount, got '%s'", receipt.Message)
	}
}

func TestCreateDonation_InvalidAmount(t *testing.T) {
	live := &fakeProcessor{}
	simulated := &fakeProcessor{}
	svc := setupDonationService(live, simulated)

	for _, amount := range []int64{0, -5} {
		_, err := svc.CreateDonation(context.Background(), models.DonationRequest{
			ArtistName: "Test Artist",
			Amount:     amount,
			Mode:       models.ModeLive,
		})
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Expected ErrInvalidRequest for amount %d, got %v", amount, err)
		}
	}

	if live.calls != 0 || simulated.calls != 0 {
		t.Errorf("Expected no processor calls for invalid amounts, got live=%d simulated=%d",
			live.calls, simulated.calls)
	}
}

func TestCreateDonation_EmptyArtist(t *testing.T) {
	live := &fakeProcessor{}
	svc := setupDonationService(live, &fakeProcessor{})

	_, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName: "  ",
		Amount:     5,
		Mode:       models.ModeLive,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}

	if live.calls != 0 {
		t.Errorf("Expected 0 processor calls, got %d", live.calls)
	}
}

func TestCreateDonation_ProcessorFailure(t *testing.T) {
	live := &fakeProcessor{err: &payments.APIError{StatusCode: 402, Message: "Your card was declined."}}
	svc := setupDonationService(live, &fakeProcessor{})

	_, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName: "Test Artist",
		Amount:     5,
		Mode:       models.ModeLive,
	})

	var procErr *ProcessorError
	if !errors.As(err, &procErr) {
		t.Fatalf("Expected *ProcessorError, got %v", err)
	}
	if procErr.Message != "Your card was declined." {
		t.Errorf("Expected processor message carried through, got '%s'", procErr.Message)
	}

	// No automatic retry
	if live.calls != 1 {
		t.Errorf("Expected exactly 1 processor call, got %d", live.calls)
	}
}

func TestCreateDonation_ProcessorTimeout(t *testing.T) {
	live := &fakeProcessor{err: context.DeadlineExceeded}
	svc := setupDonationService(live, &fakeProcessor{})

	_, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName: "Test Artist",
		Amount:     5,
		Mode:       models.ModeLive,
	})

	var timeoutErr *UpstreamTimeout
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("Expected *UpstreamTimeout, got %v", err)
	}
}

func TestCreateDonation_IndependentIntents(t *testing.T) {
	svc := setupDonationService(&fakeProcessor{}, payments.NewSimulatedProcessor())

	req := models.DonationRequest{
		ArtistName: "Test Artist",
		Amount:     5,
		Mode:       models.ModeSimulated,
	}

	first, err := svc.CreateDonation(context.Background(), req)
	if err != nil {
		t.Fatalf("First CreateDonation failed: %v", err)
	}
	second, err := svc.CreateDonation(context.Background(), req)
	if err != nil {
		t.Fatalf("Second CreateDonation failed: %v", err)
	}

	if first.Reference == second.Reference {
		t.Errorf("Expected independent intents for repeated requests, both got '%s'", first.Reference)
	}
}

func TestCreateDonation_ForwardsIdempotencyKey(t *testing.T) {
	live := &fakeProcessor{intent: &payments.Intent{Reference: "pi_1", Status: "requires_confirmation"}}
	svc := setupDonationService(live, &fakeProcessor{})

	_, err := svc.CreateDonation(context.Background(), models.DonationRequest{
		ArtistName:     "Test Artist",
		Amount:         5,
		Mode:           models.ModeLive,
		IdempotencyKey: "dedupe-1",
	})
	if err != nil {
		t.Fatalf("CreateDonation failed: %v", err)
	}

	if live.lastReq.IdempotencyKey != "dedupe-1" {
		t.Errorf("Expected idempotency key forwarded, got '%s'", live.lastReq.IdempotencyKey)
	}
}

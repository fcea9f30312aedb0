package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"fairplay-api/internal/catalog"
	"fairplay-api/internal/events"
	"fairplay-api/internal/features"
	"fairplay-api/internal/models"
	"fairplay-api/internal/payments"
	"fairplay-api/internal/service"
)

// stubProcessor returns a fixed intent or error.
type stubProcessor struct {
	calls  int
	intent *payments.Intent
	err    error
}

func (s *stubProcessor) CreateIntent(_ context.Context, req payments.IntentRequest) (*payments.Intent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	intent := *s.intent
	intent.AmountMinor = req.AmountMinor
	return &intent, nil
}

// stubCatalog returns the same artists for every range, or an error for
// the ranges listed in failRanges. The aggregator queries ranges
// concurrently, so the call counter is locked.
type stubCatalog struct {
	mu         sync.Mutex
	calls      int
	artists    []models.ArtistSummary
	failRanges map[catalog.TimeRange]bool
}

func (s *stubCatalog) TopArtists(_ context.Context, _ string, window catalog.TimeRange, _ int) ([]models.ArtistSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.failRanges[window] {
		return nil, fmt.Errorf("catalog request failed with status 500")
	}
	return s.artists, nil
}

func (s *stubCatalog) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type testEnv struct {
	live    *stubProcessor
	catalog *stubCatalog
	flags   *features.Manager
}

func setupTestRouter(env *testEnv) *chi.Mux {
	evts := events.NewManager(false)

	donations := service.NewDonationService(env.live, payments.NewSimulatedProcessor(),
		evts, zerolog.Nop(), 5*time.Second)
	artists := service.NewArtistService(env.catalog, nil, time.Minute,
		evts, zerolog.Nop(), 5*time.Second)

	h := NewHandler(donations, artists, env.flags)

	r := chi.NewRouter()
	r.Post("/donate", h.Donate)
	r.Route("/api", func(r chi.Router) {
		r.Post("/donate-mock", h.DonateMock)
		r.Get("/spotify/top-artists", h.TopArtists)
	})
	return r
}

func defaultEnv() *testEnv {
	flags := features.NewManager()
	flags.Register(features.FeatureSimulatedDonations, true, "")

	return &testEnv{
		live: &stubProcessor{intent: &payments.Intent{
			Reference:    "pi_123",
			ClientSecret: "pi_123_secret",
			Status:       "requires_confirmation",
		}},
		catalog: &stubCatalog{artists: []models.ArtistSummary{
			{ID: "a1", Name: "First Favorite"},
		}},
		flags: flags,
	}
}

func postJSON(r *chi.Mux, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestDonate_Success(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	rr := postJSON(r, "/donate", `{"amount": 5, "artistName": "Test Artist"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.DonateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.ClientSecret != "pi_123_secret" {
		t.Errorf("Expected client secret, got '%s'", response.ClientSecret)
	}
}

func TestDonate_MissingFields(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	for _, body := range []string{
		`{}`,
		`{"amount": 5}`,
		`{"artistName": "Test Artist"}`,
		`{"amount": 0, "artistName": "Test Artist"}`,
	} {
		rr := postJSON(r, "/donate", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for body %s, got %d", body, rr.Code)
		}
	}

	if env.live.calls != 0 {
		t.Errorf("Expected no processor calls for invalid requests, got %d", env.live.calls)
	}
}

func TestDonate_NonNumericAmount(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	rr := postJSON(r, "/donate", `{"amount": "abc", "artistName": "Test Artist"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
	if env.live.calls != 0 {
		t.Errorf("Expected no processor calls, got %d", env.live.calls)
	}
}

func TestDonate_EmptyBody(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	req := httptest.NewRequest("POST", "/donate", nil)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestDonate_ProcessorFailure(t *testing.T) {
	env := defaultEnv()
	env.live.intent = nil
	env.live.err = &payments.APIError{StatusCode: 402, Message: "Your card was declined."}
	r := setupTestRouter(env)

	rr := postJSON(r, "/donate", `{"amount": 5, "artistName": "Test Artist"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	if response.Error != "Your card was declined." {
		t.Errorf("Expected processor message surfaced, got '%s'", response.Error)
	}
}

func TestDonate_ProcessorTimeout(t *testing.T) {
	env := defaultEnv()
	env.live.intent = nil
	env.live.err = context.DeadlineExceeded
	r := setupTestRouter(env)

	rr := postJSON(r, "/donate", `{"amount": 5, "artistName": "Test Artist"}`)

	if rr.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected status 504, got %d", rr.Code)
	}
}

func TestDonateMock_Success(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	rr := postJSON(r, "/api/donate-mock", `{"artistName": "Test Artist", "amount": 10}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.DonateMockResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if !strings.Contains(response.Message, "Test Artist") {
		t.Errorf("Expected message to contain artist name, got '%s'", response.Message)
	}
	if !strings.Contains(response.Message, "10") {
		t.Errorf("Expected message to contain amount, got '%s'", response.Message)
	}
	if !response.Simulated {
		t.Error("Expected simulated flag set so the modes are distinguishable at the boundary")
	}
	if response.Reference == "" {
		t.Error("Expected a generated reference")
	}

	if env.live.calls != 0 {
		t.Errorf("Expected no live processor calls for mock donations, got %d", env.live.calls)
	}
}

func TestDonateMock_FlagDisabled(t *testing.T) {
	env := defaultEnv()
	env.flags.Disable(features.FeatureSimulatedDonations)
	r := setupTestRouter(env)

	rr := postJSON(r, "/api/donate-mock", `{"artistName": "Test Artist", "amount": 10}`)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 when simulated donations are disabled, got %d", rr.Code)
	}
}

func TestTopArtists_Success(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	req := httptest.NewRequest("GET", "/api/spotify/top-artists", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	var response models.TopArtists
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}

	if len(response.Weekly) != 1 || len(response.Monthly) != 1 || len(response.Yearly) != 1 {
		t.Errorf("Expected all three ranges populated, got weekly=%d monthly=%d yearly=%d",
			len(response.Weekly), len(response.Monthly), len(response.Yearly))
	}
	if env.catalog.callCount() != 3 {
		t.Errorf("Expected 3 catalog calls, got %d", env.catalog.callCount())
	}
}

func TestTopArtists_Unauthenticated(t *testing.T) {
	env := defaultEnv()
	r := setupTestRouter(env)

	req := httptest.NewRequest("GET", "/api/spotify/top-artists", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
	if env.catalog.callCount() != 0 {
		t.Errorf("Expected 0 catalog calls, got %d", env.catalog.callCount())
	}
}

func TestTopArtists_UpstreamFailure(t *testing.T) {
	env := defaultEnv()
	env.catalog.failRanges = map[catalog.TimeRange]bool{catalog.RangeMediumTerm: true}
	r := setupTestRouter(env)

	req := httptest.NewRequest("GET", "/api/spotify/top-artists", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	// All-or-nothing: one failed range fails the whole call.
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}

	var response models.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	if response.Error == "" {
		t.Error("Expected error message in response")
	}
}

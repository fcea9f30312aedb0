package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fairplay-api/internal/features"
	"fairplay-api/internal/models"
	"fairplay-api/internal/service"
	"fairplay-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	donations   *service.DonationService
	artists     *service.ArtistService
	flags       *features.Manager
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB; donation bodies are tiny
	}
}

// NewHandler creates a new handler instance.
func NewHandler(donations *service.DonationService, artists *service.ArtistService, flags *features.Manager) *Handler {
	return NewHandlerWithOptions(donations, artists, flags, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(donations *service.DonationService, artists *service.ArtistService, flags *features.Manager, opts NewHandlerOptions) *Handler {
	return &Handler{
		donations:   donations,
		artists:     artists,
		flags:       flags,
		maxBodySize: opts.MaxBodySize,
	}
}

// Donate handles POST /donate (live payment path).
func (h *Handler) Donate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDonation(w, r)
	if !ok {
		return
	}
	req.Mode = models.ModeLive

	receipt, err := h.donations.CreateDonation(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.DonateResponse{
		ClientSecret: receipt.ClientSecret,
	})
}

// DonateMock handles POST /api/donate-mock (simulated payment path).
// The endpoint disappears entirely when the simulated_donations flag is
// off, so a production client can never reach it by accident.
func (h *Handler) DonateMock(w http.ResponseWriter, r *http.Request) {
	if !h.flags.IsEnabled(features.FeatureSimulatedDonations) {
		h.respondError(w, http.StatusNotFound, "not found")
		return
	}

	req, ok := h.decodeDonation(w, r)
	if !ok {
		return
	}
	req.Mode = models.ModeSimulated

	receipt, err := h.donations.CreateDonation(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, models.DonateMockResponse{
		Message:   receipt.Message,
		Reference: receipt.Reference,
		Simulated: true,
	})
}

// TopArtists handles GET /api/spotify/top-artists.
func (h *Handler) TopArtists(w http.ResponseWriter, r *http.Request) {
	token := validation.BearerToken(r.Header.Get("Authorization"))

	result, err := h.artists.TopArtists(r.Context(), token)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// decodeDonation decodes and sanitizes a donation request body. On
// failure it writes the error response and returns ok=false.
func (h *Handler) decodeDonation(w http.ResponseWriter, r *http.Request) (models.DonationRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.DonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return req, false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return req, false
	}

	req.ArtistName = validation.SanitizeString(req.ArtistName)
	req.IdempotencyKey = validation.SanitizeString(r.Header.Get("Idempotency-Key"))

	return req, true
}

// respondServiceError maps the service error taxonomy onto HTTP status
// codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var (
		procErr    *service.ProcessorError
		upErr      *service.UpstreamError
		timeoutErr *service.UpstreamTimeout
	)

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		h.respondError(w, http.StatusUnauthorized, "not authenticated")
	case errors.As(err, &timeoutErr):
		h.respondError(w, http.StatusGatewayTimeout, "upstream request timed out")
	case errors.As(err, &procErr):
		h.respondError(w, http.StatusInternalServerError, procErr.Message)
	case errors.As(err, &upErr):
		h.respondError(w, http.StatusInternalServerError, "failed to fetch top artists")
	default:
		h.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

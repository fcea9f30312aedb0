package validation

import (
	"fmt"
	"strings"
	"unicode"

	"fairplay-api/internal/models"
)

const maxDonationAmount = 1_000_000 // major units; guards against typo'd amounts

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// ValidateDonation checks a donation request before any external call.
func ValidateDonation(req models.DonationRequest) error {
	if strings.TrimSpace(req.ArtistName) == "" {
		return &ValidationError{
			Field:   "artistName",
			Message: "is required",
		}
	}

	if req.Amount <= 0 {
		return &ValidationError{
			Field:   "amount",
			Message: "must be a positive integer",
		}
	}

	if req.Amount > maxDonationAmount {
		return &ValidationError{
			Field:   "amount",
			Message: "exceeds maximum allowed amount",
		}
	}

	switch req.Mode {
	case models.ModeLive, models.ModeSimulated:
	default:
		return &ValidationError{
			Field:   "mode",
			Message: "must be live or simulated",
		}
	}

	return nil
}

// SanitizeString strips control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// BearerToken extracts the token from an Authorization header value.
// Returns "" when the header is absent or not a bearer credential.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

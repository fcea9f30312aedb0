package models

// DonationMode selects which payment path a donation takes.
type DonationMode string

const (
	// ModeLive creates a real payment intent at the external processor.
	ModeLive DonationMode = "live"
	// ModeSimulated synthesizes a receipt without contacting any processor.
	ModeSimulated DonationMode = "simulated"
)

// DonationRequest is the request payload for creating a donation.
type DonationRequest struct {
	ArtistName string `json:"artistName"`
	Amount     int64  `json:"amount"` // major currency units (whole dollars)

	// Mode is set by the handler from the endpoint that received the
	// request, never from the client body.
	Mode DonationMode `json:"-"`

	// IdempotencyKey is an optional caller-supplied deduplication token,
	// forwarded verbatim to the processor. Without it, repeated identical
	// requests create independent payment intents.
	IdempotencyKey string `json:"-"`
}

// DonationStatus is the lifecycle state of a payment intent.
type DonationStatus string

const (
	StatusRequiresConfirmation DonationStatus = "requires_confirmation"
	StatusSucceeded            DonationStatus = "succeeded"
	StatusFailed               DonationStatus = "failed"
)

// DonationReceipt is the transient result of a donation. It is returned
// to the caller and never stored; the service keeps no donation ledger.
type DonationReceipt struct {
	Reference    string
	ClientSecret string // absent in simulated mode
	Status       DonationStatus
	ArtistName   string
	AmountMinor  int64
	Message      string // simulated mode only
}

// ArtistSummary is a read-only projection of upstream catalog data.
// Field names mirror the catalog API so the frontend consumes the
// payload unchanged.
type ArtistSummary struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Images       []Image      `json:"images"`
	Genres       []string     `json:"genres"`
	Popularity   int          `json:"popularity"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Image is one variant of an artist image.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ExternalURLs holds links to the artist's public profile.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// TopArtists maps each listening window to its rank-ordered artists.
// All three keys are always present in a successful response.
type TopArtists struct {
	Weekly  []ArtistSummary `json:"weekly"`
	Monthly []ArtistSummary `json:"monthly"`
	Yearly  []ArtistSummary `json:"yearly"`
}

// DonateResponse is the response payload for a live donation.
type DonateResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// DonateMockResponse is the response payload for a simulated donation.
type DonateMockResponse struct {
	Message   string `json:"message"`
	Reference string `json:"reference"`
	Simulated bool   `json:"simulated"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

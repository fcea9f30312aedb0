// Package catalog provides a client for the streaming-catalog API's
// "top artists by time window" capability. The caller supplies the
// listener's bearer credential per request; the client holds no
// process-wide credentials.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"fairplay-api/internal/models"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// TimeRange is an upstream listening-history window token.
type TimeRange string

const (
	RangeShortTerm  TimeRange = "short_term"
	RangeMediumTerm TimeRange = "medium_term"
	RangeLongTerm   TimeRange = "long_term"
)

// Client fetches listener data from the catalog API.
type Client struct {
	baseURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL. Used in tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient creates a catalog client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TopArtists fetches the listener's top artists for one time range, in
// upstream relevance order (most relevant first). The order is
// preserved exactly; callers must not re-sort.
func (c *Client) TopArtists(ctx context.Context, accessToken string, window TimeRange, limit int) ([]models.ArtistSummary, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("time_range", string(window))
	reqURL := fmt.Sprintf("%s/me/top/artists?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
	}))
	httpClient.Timeout = c.timeout

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog request failed with status %d", resp.StatusCode)
	}

	var body topArtistsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	artists := make([]models.ArtistSummary, 0, len(body.Items))
	for _, item := range body.Items {
		artists = append(artists, models.ArtistSummary{
			ID:         item.ID,
			Name:       item.Name,
			Images:     toImages(item.Images),
			Genres:     item.Genres,
			Popularity: item.Popularity,
			ExternalURLs: models.ExternalURLs{
				Spotify: item.ExternalURLs.Spotify,
			},
		})
	}

	return artists, nil
}

func toImages(in []catalogImage) []models.Image {
	out := make([]models.Image, 0, len(in))
	for _, img := range in {
		out = append(out, models.Image{
			URL:    img.URL,
			Width:  img.Width,
			Height: img.Height,
		})
	}
	return out
}

// Catalog API response structures

type topArtistsResponse struct {
	Items []catalogArtist `json:"items"`
	Total int             `json:"total"`
}

type catalogArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Images       []catalogImage `json:"images"`
	Genres       []string       `json:"genres"`
	Popularity   int            `json:"popularity"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

type catalogImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

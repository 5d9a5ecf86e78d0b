package reservations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtside/internal/models"
)

const (
	DefaultClientTimeout = 10 * time.Second
	reservationsPath     = "/api/v1/reservations"
	maxBodyBytes         = 1 << 20
)

// Client reads reservations from a remote reservations API.
type Client struct {
	httpClient *http.Client
	BaseURL    string
	token      string
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default client with its 10 second timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sends the token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ReservationsForDate(ctx context.Context, courtID int64, date string) ([]models.Reservation, error) {
	query := url.Values{}
	query.Set("court_id", strconv.FormatInt(courtID, 10))
	query.Set("date", date)
	endpoint := c.BaseURL + reservationsPath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "courtside/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Ctx(ctx).Debug().Str("url", endpoint).Msg("Requesting reservations")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.Ctx(ctx).Warn().
			Int("status", resp.StatusCode).
			Str("body", truncate(string(body), 256)).
			Msg("Received non-OK HTTP status from reservations API")
		return nil, fmt.Errorf("received non-OK HTTP status: %d", resp.StatusCode)
	}

	reservations, err := NormalizeFor(body, courtID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return reservations, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

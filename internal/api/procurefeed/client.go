package procurefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/spendlens/engine/internal/platform/http"
	"github.com/spendlens/engine/models"
)

// Client fetches price-observation histories from the platform's
// procurement feed service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new feed client.
type ClientOptions struct {
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new procurement feed client.
func NewClient(opts ClientOptions) *Client {
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         opts.RequestTimeout,
			RequestsPerSec:  opts.RequestsPerSec,
			MaxRetries:      opts.MaxRetries,
			MaxRetryTimeout: opts.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "procurefeed_client").Logger(),
	}
}

type historyResponse struct {
	ItemID       string `json:"item_id"`
	VendorID     string `json:"vendor_id"`
	Observations []struct {
		Date   string  `json:"date"`
		Price  float64 `json:"price"`
		Volume float64 `json:"volume,omitempty"`
	} `json:"observations"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// GetPriceHistory fetches the price history for one item/vendor pair,
// sorted by date ascending.
func (c *Client) GetPriceHistory(ctx context.Context, itemID, vendorID string, limit int) ([]models.PriceObservation, error) {
	endpoint := fmt.Sprintf("%s/v1/price-history?item=%s&vendor=%s&limit=%s",
		c.baseURL,
		url.QueryEscape(itemID),
		url.QueryEscape(vendorID),
		strconv.Itoa(limit),
	)

	c.logger.Debug().Str("item", itemID).Str("vendor", vendorID).Msg("Fetching price history")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var data historyResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if data.Status == "error" {
		c.logger.Error().Str("response", string(body)).Msg("Feed service error")
		return nil, fmt.Errorf("feed service error: %s", data.Error)
	}
	if len(data.Observations) == 0 {
		c.logger.Warn().Str("item", itemID).Str("vendor", vendorID).Msg("No observations in response")
		return nil, nil
	}

	history := make([]models.PriceObservation, 0, len(data.Observations))
	for _, obs := range data.Observations {
		date, err := time.Parse("2006-01-02", obs.Date)
		if err != nil {
			return nil, fmt.Errorf("parsing observation date %q: %w", obs.Date, err)
		}
		history = append(history, models.PriceObservation{
			Date:   date,
			Price:  obs.Price,
			Volume: obs.Volume,
		})
	}

	// Oldest first for proper feature extraction.
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	c.logger.Debug().Int("count", len(history)).Msg("Fetched price history")
	return history, nil
}

// Package steam fetches product metadata and review summaries from the
// Steam storefront. Both endpoints are public; the appreviews endpoint is
// unversioned and semi-stable, so its response is treated with suspicion.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
	"github.com/jaredsrobertson/steam-telegram-bot/internal/validator"
)

const defaultBaseURL = "https://store.steampowered.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// New builds a storefront client with a fixed request timeout. baseURL is
// only overridden in tests; pass "" for the real storefront.
func New(timeout time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
	}
}

// appdetails responses are keyed by the requested app ID.
type detailsEnvelope struct {
	Success bool                `json:"success"`
	Data    *models.GameDetails `json:"data"`
}

// FetchDetails retrieves canonical product metadata for one app ID.
// A response with success=false is the same as a transport failure: the
// caller gets an error and no partial data. No retries.
func (c *Client) FetchDetails(ctx context.Context, appID string) (*models.GameDetails, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/appdetails?appids=%s", c.baseURL, url.QueryEscape(appID))
	var payload map[string]detailsEnvelope
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("appdetails request for %s: %w", appID, err)
	}

	entry, ok := payload[appID]
	if !ok || !entry.Success || entry.Data == nil {
		return nil, fmt.Errorf("appdetails reported no data for app %s", appID)
	}
	if err := validator.Struct(entry.Data); err != nil {
		return nil, fmt.Errorf("appdetails payload for app %s: %w", appID, err)
	}
	return entry.Data, nil
}

type reviewsEnvelope struct {
	Success      int                   `json:"success"`
	QuerySummary *models.ReviewSummary `json:"query_summary"`
}

// FetchReviewSummary retrieves the aggregate review bucket for one app ID.
// Same failure policy as FetchDetails.
func (c *Client) FetchReviewSummary(ctx context.Context, appID string) (*models.ReviewSummary, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/appreviews/%s?json=1&language=all&purchase_type=all", c.baseURL, url.PathEscape(appID))
	var payload reviewsEnvelope
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("appreviews request for %s: %w", appID, err)
	}

	if payload.Success != 1 || payload.QuerySummary == nil {
		return nil, fmt.Errorf("appreviews reported no summary for app %s", appID)
	}
	return payload.QuerySummary, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// StoreURL derives the public store page for an app ID.
func StoreURL(appID string) string {
	return defaultBaseURL + "/app/" + appID
}

// FormatPrice renders the price line for a game. Free wins over any price
// overview; a paid game without one gets an explicit sentinel.
func FormatPrice(details *models.GameDetails) string {
	if details.IsFree {
		return "Free"
	}
	if details.PriceOverview != nil && details.PriceOverview.FinalFormatted != "" {
		return details.PriceOverview.FinalFormatted
	}
	return "Price not available"
}

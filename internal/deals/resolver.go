// Package deals resolves a Steam app ID to the best current price across
// a fixed shop allow-list via the IsThereAnyDeal API.
//
// ITAD indexes games by its own catalog ID, so every request is a
// two-stage protocol: look the game up (by app ID, then by title when the
// direct lookup fails), then query prices for the resolved catalog ID.
package deals

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaredsrobertson/steam-telegram-bot/internal/models"
)

const defaultBaseURL = "https://api.isthereanydeal.com"

// ErrNotFound means no catalog match or no current deal exists. It is an
// expected, common outcome and never aborts the overall reply.
var ErrNotFound = errors.New("no deal found")

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	shops      []string
	country    string
	limiter    *rate.Limiter
	log        *slog.Logger
}

func New(apiKey string, shops []string, country string, timeout time.Duration, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		shops:      shops,
		country:    country,
		limiter:    rate.NewLimiter(rate.Limit(2), 4),
		log:        slog.Default().With("component", "deals"),
	}
}

// resolutionState makes the lookup-then-fallback boundaries explicit and
// testable in isolation.
type resolutionState int

const (
	stateUnresolved resolutionState = iota
	stateDirectFailed
	stateFallbackAttempted
	stateResolved
	stateFailed
)

type resolution struct {
	state     resolutionState
	catalogID string
}

// BestDeal returns the single best deal for an app, or ErrNotFound when
// either lookup stage or the price query comes up empty. title feeds the
// free-text fallback and may be empty.
func (c *Client) BestDeal(ctx context.Context, appID, title string) (*models.DealQuote, error) {
	res := c.resolveCatalogID(ctx, appID, title)
	if res.state != stateResolved {
		return nil, ErrNotFound
	}
	return c.fetchBestPrice(ctx, res.catalogID)
}

// resolveCatalogID walks the state machine
// unresolved -> directFailed -> fallbackAttempted -> {resolved, failed}.
func (c *Client) resolveCatalogID(ctx context.Context, appID, title string) resolution {
	res := resolution{state: stateUnresolved}

	id, err := c.lookup(ctx, url.Values{"appid": {appID}})
	if err == nil {
		res.state = stateResolved
		res.catalogID = id
		return res
	}
	res.state = stateDirectFailed
	c.log.Info("Direct catalog lookup failed, trying title fallback", "app_id", appID, "error", err)

	if strings.TrimSpace(title) == "" {
		res.state = stateFailed
		return res
	}
	res.state = stateFallbackAttempted

	id, err = c.lookup(ctx, url.Values{"title": {title}})
	if err != nil {
		res.state = stateFailed
		c.log.Info("Title fallback lookup failed", "title", title, "error", err)
		return res
	}
	res.state = stateResolved
	res.catalogID = id
	return res
}

type lookupResponse struct {
	Found bool `json:"found"`
	Game  struct {
		ID string `json:"id"`
	} `json:"game"`
}

func (c *Client) lookup(ctx context.Context, params url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params.Set("key", c.apiKey)
	endpoint := fmt.Sprintf("%s/games/lookup/v1?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("lookup status %s", resp.Status)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding lookup response: %w", err)
	}
	if !payload.Found || payload.Game.ID == "" {
		return "", ErrNotFound
	}
	return payload.Game.ID, nil
}

type priceEntry struct {
	ID    string `json:"id"`
	Deals []struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
		Price struct {
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		} `json:"price"`
		Cut int    `json:"cut"`
		URL string `json:"url"`
	} `json:"deals"`
}

// fetchBestPrice queries prices for one catalog ID and takes the first
// deal entry. The upstream pre-ranks its list; we trust that ordering.
func (c *Client) fetchBestPrice(ctx context.Context, catalogID string) (*models.DealQuote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"key":      {c.apiKey},
		"country":  {c.country},
		"shops":    {strings.Join(c.shops, ",")},
		"nondeals": {"false"},
	}
	endpoint := fmt.Sprintf("%s/games/prices/v2?%s", c.baseURL, params.Encode())

	body, err := json.Marshal([]string{catalogID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("prices status %s", resp.Status)
	}

	var payload []priceEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding prices response: %w", err)
	}
	if len(payload) == 0 || len(payload[0].Deals) == 0 {
		return nil, ErrNotFound
	}

	best := payload[0].Deals[0]
	if best.Shop.Name == "" {
		return nil, fmt.Errorf("price entry for %s is missing a shop name", catalogID)
	}
	return &models.DealQuote{
		Store:      best.Shop.Name,
		Amount:     best.Price.Amount,
		Currency:   best.Price.Currency,
		CutPercent: best.Cut,
		URL:        best.URL,
	}, nil
}

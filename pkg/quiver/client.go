// Package quiver provides a Go SDK for the quiver-server runs API.
package quiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"quiver/internal/httpapi"
)

// Client provides a Go SDK for interacting with the quiver-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quiver API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListStrategies retrieves the names of all registered strategies.
func (c *Client) ListStrategies(ctx context.Context) ([]string, error) {
	var resp httpapi.StrategiesResponse
	if err := c.get(ctx, "/api/v1/strategies", &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// ListRuns retrieves metadata for the most recent runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]httpapi.RunJSON, error) {
	path := "/api/v1/runs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.RunListResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// GetRun retrieves the full result bundle for one run.
func (c *Client) GetRun(ctx context.Context, id string) (*httpapi.RunDetailResponse, error) {
	var resp httpapi.RunDetailResponse
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetRunValues retrieves the equity curve for one run.
func (c *Client) GetRunValues(ctx context.Context, id string) ([]httpapi.ValueJSON, error) {
	var resp httpapi.ValuesResponse
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id)+"/values", &resp); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// GetRunTrades retrieves the trade ledger for one run.
func (c *Client) GetRunTrades(ctx context.Context, id string) ([]httpapi.TradeJSON, error) {
	var resp httpapi.TradesResponse
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id)+"/trades", &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}

// ListOrders retrieves the most recent journaled orders, newest first.
func (c *Client) ListOrders(ctx context.Context, limit int) ([]httpapi.OrderJSON, error) {
	path := "/api/v1/orders"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp httpapi.OrdersResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rastreo/internal/carriers"
	"rastreo/internal/database"
	"rastreo/internal/handlers"
)

// Client is a typed HTTP client for the tracking server API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Headless-backed queries can take the better part of a minute.
			Timeout: 2 * time.Minute,
		},
	}
}

// APIError represents an error from the API
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// doRequest performs an HTTP request and handles errors
func (c *Client) doRequest(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		apiErr := APIError{Code: resp.StatusCode, Message: resp.Status}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return nil, &apiErr
	}
	return resp, nil
}

func (c *Client) getJSON(path string, out interface{}) error {
	resp, err := c.doRequest("GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

// HealthCheck checks if the API server is healthy
func (c *Client) HealthCheck() error {
	resp, err := c.doRequest("GET", "/api/health", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Track runs one tracking query and returns the result envelope.
func (c *Client) Track(req handlers.TrackRequest) (*carriers.ScraperResult, error) {
	resp, err := c.doRequest("POST", "/api/track", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result carriers.ScraperResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// GetHistory returns recent history entries. A non-empty status filters to
// "delivered" or "in-transit".
func (c *Client) GetHistory(limit int, status string) ([]database.HistoryEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/api/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var entries []database.HistoryEntry
	if err := c.getJSON(path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteHistoryEntry removes one entry by id.
func (c *Client) DeleteHistoryEntry(id string) error {
	resp, err := c.doRequest("DELETE", "/api/history/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ClearHistory removes every entry.
func (c *Client) ClearHistory() error {
	resp, err := c.doRequest("DELETE", "/api/history", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Refresh triggers one refresh pass and returns how many entries were
// re-queried.
func (c *Client) Refresh() (int, error) {
	resp, err := c.doRequest("POST", "/api/refresh", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var payload struct {
		Refreshed int `json:"refreshed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload.Refreshed, nil
}

// GetCarriers returns the carrier metadata registry.
func (c *Client) GetCarriers() ([]carriers.CarrierInfo, error) {
	var infos []carriers.CarrierInfo
	if err := c.getJSON("/api/carriers", &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// InvalidateCache drops cached results for one "carrier-identifier" tag.
func (c *Client) InvalidateCache(tag string) error {
	resp, err := c.doRequest("DELETE", "/api/cache/"+url.PathEscape(tag), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/server"
)

// apiClient is a thin JSON client for a running Aegis instance, shared by
// the commands that inspect one (status, phase).
type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(address string, timeout time.Duration) *apiClient {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	return &apiClient{
		baseURL: strings.TrimRight(address, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// resolveAddress picks the instance address: an explicit flag wins, then
// the configuration file, then the documented default.
func resolveAddress(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if err := config.Initialize(cfgFile); err == nil {
		if cfg := config.Active(); cfg != nil {
			return cfg.Server.ListenAddress
		}
	}
	return config.DefaultListenAddress
}

// getJSON fetches path and decodes the body into out. Non-2xx responses
// are turned into errors carrying the server's error envelope when one is
// present.
func (c *apiClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope server.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error.Message != "" {
			return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, envelope.Error.Message)
		}
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

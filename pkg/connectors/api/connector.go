// Package api provides the external API connector for chain execution.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chainrun/chainrun/pkg/models"
)

// Connector calls an external HTTP API to exercise the integration end to
// end. Unlike the service connector it carries credentials for third-party
// endpoints.
type Connector struct {
	config Config
}

// Config defines the connection settings for an api component.
type Config struct {
	URL            string
	Method         string
	Headers        map[string]string
	Body           string
	AuthToken      string
	APIKey         string
	APIKeyHeader   string
	Timeout        int
	ExpectedStatus int
}

// NewConnector parses the component config and builds an api connector.
func NewConnector(component *models.Component) (*Connector, error) {
	config := Config{
		Method:       "GET",
		Headers:      make(map[string]string),
		APIKeyHeader: "X-API-Key",
		Timeout:      30,
	}

	if url, ok := component.Config["url"].(string); ok && url != "" {
		config.URL = url
	} else {
		return nil, errors.New("missing required field 'url'")
	}

	if method, ok := component.Config["method"].(string); ok && method != "" {
		config.Method = strings.ToUpper(method)
	}

	if headers, ok := component.Config["headers"].(map[string]any); ok {
		for k, v := range headers {
			if strVal, ok := v.(string); ok {
				config.Headers[k] = strVal
			}
		}
	}

	if body, ok := component.Config["body"].(string); ok {
		config.Body = body
	}

	if token, ok := component.Config["auth_token"].(string); ok {
		config.AuthToken = token
	}

	if apiKey, ok := component.Config["api_key"].(string); ok {
		config.APIKey = apiKey
	}

	if header, ok := component.Config["api_key_header"].(string); ok && header != "" {
		config.APIKeyHeader = header
	}

	if timeout, ok := component.Config["timeout"].(float64); ok {
		config.Timeout = int(timeout)
	}

	if expected, ok := component.Config["expected_status"].(float64); ok {
		config.ExpectedStatus = int(expected)
	}

	return &Connector{config: config}, nil
}

// Type returns the component type this connector serves.
func (c *Connector) Type() models.ComponentType {
	return models.ComponentTypeAPI
}

// Execute performs one request against the external API.
func (c *Connector) Execute(ctx context.Context) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	var reqBody io.Reader
	if c.config.Body != "" {
		reqBody = strings.NewReader(c.config.Body)
	}

	req, err := http.NewRequestWithContext(ctx, c.config.Method, c.config.URL, reqBody)
	if err != nil {
		return nil, models.NewAttemptError(models.SignalPermanentConfig,
			fmt.Errorf("build request: %w", err))
	}

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	if c.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.AuthToken)
	}

	if c.config.APIKey != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	if c.config.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, models.NewAttemptError(models.SignalTransientConnectivity,
			fmt.Errorf("request failed: %w", err))
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewAttemptError(models.SignalTransientConnectivity,
			fmt.Errorf("read response: %w", err))
	}

	if err := checkStatus(resp.StatusCode, c.config.ExpectedStatus); err != nil {
		return nil, err
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        string(respBody),
	}

	var jsonBody any
	if err := json.Unmarshal(respBody, &jsonBody); err == nil {
		result["json"] = jsonBody
	}

	return result, nil
}

// checkStatus validates the response status. Authentication and routing
// failures are configuration problems; payload rejections are data problems;
// server-side failures and throttling are worth retrying.
func checkStatus(statusCode, expected int) error {
	if expected > 0 {
		if statusCode == expected {
			return nil
		}
	} else if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	err := fmt.Errorf("unexpected status %d", statusCode)

	switch {
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusTooManyRequests:
		return models.NewAttemptError(models.SignalTransientRemoteError, err)
	case statusCode >= 500:
		return models.NewAttemptError(models.SignalTransientRemoteError, err)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		statusCode == http.StatusNotFound || statusCode == http.StatusMethodNotAllowed:
		return models.NewAttemptError(models.SignalPermanentConfig, err)
	case statusCode >= 400:
		return models.NewAttemptError(models.SignalPermanentData, err)
	default:
		return models.NewAttemptError(models.SignalTransientRemoteError, err)
	}
}

// Package client calls a remote wealth-management API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"wealth/internal/accounts"
	"wealth/pkg/platform/circuit"
)

const (
	opGetClient      = "get_client"
	opOpenInvestment = "open_investment"
)

// HTTPClient implements accounts.ClientService and accounts.InvestmentService.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *circuit.Breaker
}

var (
	_ accounts.ClientService     = (*HTTPClient)(nil)
	_ accounts.InvestmentService = (*HTTPClient)(nil)
)

// Option configures the HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithBreaker rejects calls while the breaker is open. Only outages and
// timeouts count as failures.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

// New creates an HTTP accounts client.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type investmentRequest struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// GetClient calls GET /clients/{id}.
func (c *HTTPClient) GetClient(ctx context.Context, clientID string) (*accounts.ClientSnapshot, error) {
	endpoint := fmt.Sprintf("%s/clients/%s", c.baseURL, url.PathEscape(clientID))
	body, err := c.do(ctx, opGetClient, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var snapshot accounts.ClientSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, accounts.NewRemoteError(accounts.ErrorBadData, opGetClient, "failed to parse response", err)
	}
	if snapshot.ClientID == "" {
		snapshot.ClientID = clientID
	}
	return &snapshot, nil
}

// OpenInvestment calls POST /clients/{id}/investments.
func (c *HTTPClient) OpenInvestment(ctx context.Context, account accounts.InvestmentAccount) (*accounts.Receipt, error) {
	reqBody, err := json.Marshal(investmentRequest{Name: account.Name, Balance: account.Balance})
	if err != nil {
		return nil, accounts.NewRemoteError(accounts.ErrorInternal, opOpenInvestment, "failed to marshal request", err)
	}
	endpoint := fmt.Sprintf("%s/clients/%s/investments", c.baseURL, url.PathEscape(account.ClientID))
	body, err := c.do(ctx, opOpenInvestment, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	var receipt accounts.Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, accounts.NewRemoteError(accounts.ErrorBadData, opOpenInvestment, "failed to parse response", err)
	}
	if receipt.InvestmentID == "" {
		return nil, accounts.NewRemoteError(accounts.ErrorBadData, opOpenInvestment, "response missing investment_id", nil)
	}
	return &receipt, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, endpoint string, payload []byte) ([]byte, error) {
	if c.breaker == nil {
		return c.send(ctx, op, method, endpoint, payload)
	}
	if !c.breaker.Allow() {
		return nil, accounts.NewRemoteError(accounts.ErrorOutage, op, "circuit open", nil)
	}
	body, err := c.send(ctx, op, method, endpoint, payload)
	var re *accounts.RemoteError
	if errors.As(err, &re) && (re.Category == accounts.ErrorOutage || re.Category == accounts.ErrorTimeout) {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	return body, err
}

func (c *HTTPClient) send(ctx context.Context, op, method, endpoint string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, accounts.NewRemoteError(accounts.ErrorInternal, op, "failed to create request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, accounts.NewRemoteError(accounts.ErrorTimeout, op, "request timeout", err)
		}
		return nil, accounts.NewRemoteError(accounts.ErrorOutage, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, accounts.NewRemoteError(accounts.ErrorInternal, op, "failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, accounts.NewRemoteError(accounts.ErrorNotFound, op, remoteMessage(body, "record not found"), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, accounts.NewRemoteError(accounts.ErrorAuthentication, op, "authentication failed", nil)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, accounts.NewRemoteError(accounts.ErrorBadData, op, remoteMessage(body, "invalid request"), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, accounts.NewRemoteError(accounts.ErrorRateLimited, op, "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, accounts.NewRemoteError(accounts.ErrorTimeout, op, "upstream timeout", nil)
	case resp.StatusCode >= 500:
		return nil, accounts.NewRemoteError(accounts.ErrorOutage, op, fmt.Sprintf("service error: %d", resp.StatusCode), nil)
	default:
		return nil, accounts.NewRemoteError(accounts.ErrorInternal, op, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}
}

func remoteMessage(body []byte, fallback string) string {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return fallback
}

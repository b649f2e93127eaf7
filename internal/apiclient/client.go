// File: internal/apiclient/client.go
// Description: Typed HTTP client over the storefront surface. The client
// paces requests through a shared rate limiter and reports transport
// outcomes only; interpreting business status codes is the probes' job.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reqini/catalogo-indumentaria-sub000/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is the transport-level outcome of one storefront call.
type Response struct {
	Status   int
	Body     []byte
	Duration time.Duration
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// ServerError reports whether the status is in the 5xx range.
func (r *Response) ServerError() bool {
	return r.Status >= 500
}

// JSON unmarshals the response body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client is the storefront HTTP surface. All methods honor the context and
// the configured per-request timeout.
type Client struct {
	logger  *zap.Logger
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
}

// New creates a Client from the target configuration.
func New(logger *zap.Logger, cfg config.TargetConfig) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid target base URL %q: %w", cfg.BaseURL, err)
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &Client{
		logger:  logger.Named("apiclient"),
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

// Home fetches the storefront root page.
func (c *Client) Home(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/", nil, nil, "")
}

// Products lists products, optionally filtered.
func (c *Client) Products(ctx context.Context, filters url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/api/products", filters, nil, "")
}

// Product fetches one product's detail.
func (c *Client) Product(ctx context.Context, id string) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, "")
}

// Checkout posts a cart/buyer/shipping payload to the order-creation
// endpoint. Validation failures come back as 4xx in the Response.
func (c *Client) Checkout(ctx context.Context, payload any) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/checkout", nil, payload, "")
}

// Login authenticates an admin actor and returns the raw response; the
// caller extracts whatever token shape the backend issued.
func (c *Client) Login(ctx context.Context, user, secret string) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/login", nil, map[string]string{
		"email":    user,
		"password": secret,
	}, "")
}

// CreateProduct posts a product-create payload as an authenticated actor.
func (c *Client) CreateProduct(ctx context.Context, token string, payload any) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/products", nil, payload, token)
}

// PaymentPreference asks the gateway integration to create a payment
// preference for the given cart.
func (c *Client) PaymentPreference(ctx context.Context, payload any) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/payment", nil, payload, "")
}

// PaymentWebhook posts a synthetic gateway notification.
func (c *Client) PaymentWebhook(ctx context.Context, payload any) (*Response, error) {
	return c.do(ctx, http.MethodPost, "/api/payment/webhook", nil, payload, "")
}

// PaymentConfig fetches the payment-gateway configuration diagnostic.
func (c *Client) PaymentConfig(ctx context.Context) (*Response, error) {
	return c.do(ctx, http.MethodGet, "/api/payment/config", nil, nil, "")
}

// Get fetches an arbitrary path on the target. Used by the route
// reachability sweep and the performance fetches.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, token string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter aborted: %w", err)
	}

	u := *c.baseURL
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cannot encode request payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("cannot build request for %s: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("cannot read response from %s: %w", path, err)
	}

	duration := time.Since(start)
	c.logger.Debug("Storefront call finished",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))

	return &Response{Status: resp.StatusCode, Body: data, Duration: duration}, nil
}

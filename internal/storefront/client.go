// Package storefront is the HTTP client for the hosted commerce endpoints:
// cart read/change/add/update, product lookup, and section rendering. It owns
// the request defaults every controller shares (method, headers, origin-scoped
// credentials); callers supply endpoint and body. One attempt per call, no
// retries; failures are surfaced to the caller, who owns user-facing
// messaging.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"cart-engine/internal/model"
	"cart-engine/internal/transport"
)

const (
	defaultTimeout = 30 * time.Second

	acceptJSON       = "application/json"
	acceptJavascript = "application/javascript"
	acceptHTML       = "text/html"
)

// Routes is the storefront's route table. Values come from global page
// configuration; defaults match the hosted platform's conventions.
type Routes struct {
	CartURL       string `json:"cart_url"`
	CartAddURL    string `json:"cart_add_url"`
	CartChangeURL string `json:"cart_change_url"`
	CartUpdateURL string `json:"cart_update_url"`
}

// DefaultRoutes returns the standard cart route table.
func DefaultRoutes() Routes {
	return Routes{
		CartURL:       "/cart",
		CartAddURL:    "/cart/add.js",
		CartChangeURL: "/cart/change.js",
		CartUpdateURL: "/cart/update.js",
	}
}

func (r Routes) withDefaults() Routes {
	def := DefaultRoutes()
	if r.CartURL == "" {
		r.CartURL = def.CartURL
	}
	if r.CartAddURL == "" {
		r.CartAddURL = def.CartAddURL
	}
	if r.CartChangeURL == "" {
		r.CartChangeURL = def.CartChangeURL
	}
	if r.CartUpdateURL == "" {
		r.CartUpdateURL = def.CartUpdateURL
	}
	return r
}

// Config configures a Client.
type Config struct {
	// StoreURL is the storefront origin, e.g. https://shop.example.com.
	StoreURL string
	// Routes overrides the default cart route table.
	Routes Routes
	// HTTPClient overrides the default browser-fingerprint client. Used by
	// tests to point at a fake storefront.
	HTTPClient *http.Client
}

// Client issues requests against one storefront origin. Cookies (cart
// session) are scoped to that origin via the jar, the Go equivalent of
// same-origin credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	routes     Routes
	hints      map[string]string
}

// New creates a storefront client.
func New(cfg Config) (*Client, error) {
	if cfg.StoreURL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	base, err := url.Parse(cfg.StoreURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid store URL %q", cfg.StoreURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: transport.NewChromeTransport(defaultTimeout),
			Jar:       jar,
		}
	} else if httpClient.Jar == nil {
		if jar, err := cookiejar.New(nil); err == nil {
			httpClient.Jar = jar
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.StoreURL, "/"),
		routes:     cfg.Routes.withDefaults(),
		hints:      transport.ClientHintHeaders(),
	}, nil
}

// ChangeRequest is the body of a cart line change. Quantity 0 removes the
// line. Sections lists the section names the caller wants re-rendered;
// SectionsURL is the page path the sections render in the context of.
type ChangeRequest struct {
	Line        int      `json:"line"`
	Quantity    int      `json:"quantity"`
	Sections    []string `json:"sections,omitempty"`
	SectionsURL string   `json:"sections_url,omitempty"`
}

// ChangeCart updates one line's quantity and returns the fresh cart snapshot
// with any requested section fragments. A snapshot with a non-empty Errors
// field means the server kept the cart unchanged (e.g. insufficient stock);
// that is not an error at this layer.
func (c *Client) ChangeCart(ctx context.Context, req ChangeRequest) (*model.CartState, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.routes.CartChangeURL, req, acceptJSON)
	if err != nil {
		return nil, err
	}

	var state model.CartState
	if err := c.do(httpReq, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// AddRequest is the body of a batch add-to-cart. Sections here are the
// attached cart widget's region ids; the response keys its sections map by
// those ids.
type AddRequest struct {
	Items       []model.AddItem `json:"items"`
	Sections    []string        `json:"sections,omitempty"`
	SectionsURL string          `json:"sections_url,omitempty"`
}

// AddItems submits a batch add-to-cart. A response body carrying a status
// field is a server rejection (sold out, stock limits) and comes back as a
// SERVER_REJECTION error with the server's description.
func (c *Client) AddItems(ctx context.Context, req AddRequest) (*model.CartState, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, c.routes.CartAddURL, req, acceptJavascript)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, model.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewTransportError(fmt.Errorf("reading response: %w", err))
	}

	// Rejections arrive as a JSON body with a status field, regardless of
	// the HTTP status code.
	var state model.CartState
	if err := json.Unmarshal(body, &state); err != nil {
		if resp.StatusCode >= 400 {
			return nil, c.mapStatusError(resp.StatusCode, body)
		}
		return nil, model.NewTransportError(fmt.Errorf("parsing response: %w", err))
	}
	if state.Status != 0 {
		return nil, model.NewServerRejection(state.Description, state.Status)
	}
	if resp.StatusCode >= 400 {
		return nil, c.mapStatusError(resp.StatusCode, body)
	}
	return &state, nil
}

// UpdateNote persists the cart note. Fire-and-forget: the response body is
// discarded, only transport failures are reported.
func (c *Client) UpdateNote(ctx context.Context, note string) error {
	body := struct {
		Note string `json:"note"`
	}{Note: note}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.routes.CartUpdateURL, body, acceptJSON)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.NewTransportError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return c.mapStatusError(resp.StatusCode, nil)
	}
	return nil
}

// GetCart fetches the live cart as JSON.
func (c *Client) GetCart(ctx context.Context) (*model.CartState, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/cart.js", nil, acceptJSON)
	if err != nil {
		return nil, err
	}

	var state model.CartState
	if err := c.do(httpReq, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetProduct fetches the product descriptor for a product id or handle.
func (c *Client) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/products/"+url.PathEscape(id)+".js", nil, acceptJSON)
	if err != nil {
		return nil, err
	}

	var product model.Product
	if err := c.do(httpReq, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetSection fetches one server-rendered section of the cart page as HTML.
func (c *Client) GetSection(ctx context.Context, sectionID string) (string, error) {
	path := c.routes.CartURL + "?section_id=" + url.QueryEscape(sectionID)
	httpReq, err := c.newRequest(ctx, http.MethodGet, path, nil, acceptHTML)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", model.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", model.NewTransportError(fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode >= 400 {
		return "", c.mapStatusError(resp.StatusCode, body)
	}
	return string(body), nil
}

// === HTTP helpers ===

// newRequest builds a request with the shared fetch defaults: JSON content
// type, negotiated Accept, and Chrome client-hint headers matching the
// transport's TLS fingerprint.
func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, accept string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", accept)
	for name, value := range c.hints {
		req.Header.Set(name, value)
	}

	return req, nil
}

// do executes the request and decodes the JSON response.
func (c *Client) do(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewTransportError(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return c.mapStatusError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return model.NewTransportError(fmt.Errorf("parsing response: %w", err))
		}
	}

	return nil
}

// mapStatusError converts storefront error responses to model.APIError.
func (c *Client) mapStatusError(statusCode int, body []byte) error {
	var payload struct {
		Status      int    `json:"status"`
		Message     string `json:"message"`
		Description string `json:"description"`
		Errors      string `json:"errors"`
	}
	json.Unmarshal(body, &payload) // best effort parse

	switch statusCode {
	case http.StatusNotFound:
		return model.NewNotFoundError("resource")
	case http.StatusTooManyRequests:
		return model.NewRateLimitError()
	case http.StatusUnprocessableEntity:
		description := payload.Description
		if description == "" {
			description = payload.Errors
		}
		return model.NewServerRejection(description, statusCode)
	default:
		return model.NewTransportError(fmt.Errorf("status %d: %s", statusCode, payload.Message))
	}
}

// BaseURL returns the storefront origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

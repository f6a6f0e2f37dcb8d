package bling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	apperrors "github.com/erpsync/bling-sync/internal/errors"
	"github.com/erpsync/bling-sync/internal/models"
)

// TokenSaver persists a refreshed token state. Invoked after every successful
// exchange or refresh; a save failure is logged but does not fail the request
// that triggered the refresh.
type TokenSaver func(ctx context.Context, companyID string, state models.TokenState) error

// Client performs authenticated calls against the Bling API for one tenant,
// refreshing the bearer credential transparently. Refreshes are serialized on
// the client mutex so a burst of requests at expiry triggers exactly one
// refresh; the provider rotates refresh tokens, so independent refreshes would
// invalidate each other.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokenURL   string
	companyID  string
	logger     *logrus.Logger
	saveToken  TokenSaver
	now        func() time.Time

	mu    sync.Mutex
	token models.TokenState
}

// ClientOption allows configuring the Bling client
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenSaver registers a hook that persists refreshed tokens.
func WithTokenSaver(saver TokenSaver) ClientOption {
	return func(c *Client) {
		c.saveToken = saver
	}
}

// NewClient creates a client for one tenant's connection.
func NewClient(companyID string, state models.TokenState, baseURL, tokenURL string, timeout time.Duration, logger *logrus.Logger, opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		tokenURL:   tokenURL,
		companyID:  companyID,
		logger:     logger,
		token:      state,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Token returns the current token state.
func (c *Client) Token() models.TokenState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.token.ClientID,
		ClientSecret: c.token.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Authenticate exchanges a one-time authorization code for a token pair. Never
// retried; on rejection the caller must restart the OAuth flow. The stored
// token state is only replaced on full success.
func (c *Client) Authenticate(ctx context.Context, code string) (models.TokenState, error) {
	if code == "" {
		return models.TokenState{}, &apperrors.AuthExchangeError{CompanyID: c.companyID, Message: "authorization code is empty"}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	c.mu.Lock()
	defer c.mu.Unlock()

	tok, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		return models.TokenState{}, &apperrors.AuthExchangeError{
			CompanyID: c.companyID,
			Message:   "provider rejected the authorization code",
			Err:       err,
		}
	}

	c.token = c.token.WithTokens(tok.AccessToken, tok.RefreshToken, tok.Expiry)
	c.persistTokenLocked(ctx)

	c.logger.WithFields(logrus.Fields{
		"company_id": c.companyID,
		"expires_at": c.token.ExpiresAt,
	}).Info("Authorization code exchanged successfully")

	return c.token, nil
}

// ensureValidToken refreshes the token when it is absent or expired. The
// double check under the mutex guarantees at most one refresh per expiry even
// under concurrent requests.
func (c *Client) ensureValidToken(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Usable(c.now()) {
		return nil
	}
	return c.refreshLocked(ctx)
}

// forceRefresh discards the current access token and refreshes. Used after a
// 401 from the API, which means the token was invalidated out-of-band.
func (c *Client) forceRefresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

// refreshLocked exchanges the stored refresh token for a new pair. Caller must
// hold c.mu.
func (c *Client) refreshLocked(ctx context.Context) error {
	if c.token.RefreshToken == "" {
		return &apperrors.RefreshError{CompanyID: c.companyID}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	src := c.oauthConfig().TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return &apperrors.RefreshError{CompanyID: c.companyID, Err: err}
	}

	refreshToken := tok.RefreshToken
	if refreshToken == "" {
		refreshToken = c.token.RefreshToken
	}
	c.token = c.token.WithTokens(tok.AccessToken, refreshToken, tok.Expiry)
	c.persistTokenLocked(ctx)

	c.logger.WithFields(logrus.Fields{
		"company_id": c.companyID,
		"expires_at": c.token.ExpiresAt,
	}).Info("Access token refreshed")

	return nil
}

func (c *Client) persistTokenLocked(ctx context.Context) {
	if c.saveToken == nil {
		return
	}
	if err := c.saveToken(ctx, c.companyID, c.token); err != nil {
		c.logger.WithError(err).WithField("company_id", c.companyID).Error("Failed to persist refreshed token")
	}
}

// request performs an authenticated call and decodes the JSON body into out.
// Non-2xx responses are normalized into *APIError. A single 401 is absorbed by
// forcing one refresh and retrying, which covers a refresh race with another
// process holding the same connection.
func (c *Client) request(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	if err := c.ensureValidToken(ctx); err != nil {
		return err
	}

	refreshed := false
	for {
		resp, err := c.do(ctx, method, endpoint, query, body)
		if err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			refreshed = true
			c.logger.WithField("company_id", c.companyID).Warn("Request rejected with 401, forcing token refresh")
			if err := c.forceRefresh(ctx); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return parseAPIError(resp.StatusCode, data)
		}

		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return nil
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) (*http.Response, error) {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token().AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func parseAPIError(statusCode int, body []byte) error {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		return NewAPIError(statusCode, payload.Error.Type, payload.Error.Message)
	}
	return NewAPIError(statusCode, "", string(body))
}

func (f *ListFilters) query() url.Values {
	q := url.Values{}
	if f == nil {
		return q
	}
	if f.Page > 0 {
		q.Set("pagina", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("limite", strconv.Itoa(f.PageSize))
	}
	if f.Since != nil {
		q.Set("dataAlteracaoInicial", f.Since.UTC().Format("2006-01-02 15:04:05"))
	}
	return q
}

// GetOrders fetches one page of sales orders.
func (c *Client) GetOrders(ctx context.Context, filters *ListFilters) (*OrderPage, error) {
	var envelope struct {
		Data []json.RawMessage `json:"data"`
		Meta listMeta          `json:"meta"`
	}
	if err := c.request(ctx, http.MethodGet, "/pedidos/vendas", filters.query(), nil, &envelope); err != nil {
		return nil, err
	}

	page := &OrderPage{Pages: envelope.Meta.Pages}
	for _, raw := range envelope.Data {
		var p orderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		page.Orders = append(page.Orders, p.toModel(raw))
	}
	return page, nil
}

// GetOrder fetches a single sales order by its remote id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	endpoint := fmt.Sprintf("/pedidos/vendas/%d", id)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &envelope); err != nil {
		return nil, err
	}

	var p orderPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode order: %w", err)
	}
	return p.toModel(envelope.Data), nil
}

// UpdateOrderStatus moves a sales order into the given situation.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, statusID int) error {
	endpoint := fmt.Sprintf("/pedidos/vendas/%d/situacoes/%d", orderID, statusID)
	return c.request(ctx, http.MethodPatch, endpoint, nil, nil, nil)
}

// GetProducts fetches one page of products.
func (c *Client) GetProducts(ctx context.Context, filters *ListFilters) (*ProductPage, error) {
	var envelope struct {
		Data []json.RawMessage `json:"data"`
		Meta listMeta          `json:"meta"`
	}
	if err := c.request(ctx, http.MethodGet, "/produtos", filters.query(), nil, &envelope); err != nil {
		return nil, err
	}

	page := &ProductPage{Pages: envelope.Meta.Pages}
	for _, raw := range envelope.Data {
		var p productPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		page.Products = append(page.Products, p.toModel(raw))
	}
	return page, nil
}

// GetProduct fetches a single product by its remote id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	endpoint := fmt.Sprintf("/produtos/%d", id)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &envelope); err != nil {
		return nil, err
	}

	var p productPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return p.toModel(envelope.Data), nil
}

// GetCustomers fetches one page of contacts.
func (c *Client) GetCustomers(ctx context.Context, filters *ListFilters) (*CustomerPage, error) {
	var envelope struct {
		Data []json.RawMessage `json:"data"`
		Meta listMeta          `json:"meta"`
	}
	if err := c.request(ctx, http.MethodGet, "/contatos", filters.query(), nil, &envelope); err != nil {
		return nil, err
	}

	page := &CustomerPage{Pages: envelope.Meta.Pages}
	for _, raw := range envelope.Data {
		var p customerPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to decode customer: %w", err)
		}
		page.Customers = append(page.Customers, p.toModel(raw))
	}
	return page, nil
}

// GetCustomer fetches a single contact by its remote id.
func (c *Client) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	endpoint := fmt.Sprintf("/contatos/%d", id)
	if err := c.request(ctx, http.MethodGet, endpoint, nil, nil, &envelope); err != nil {
		return nil, err
	}

	var p customerPayload
	if err := json.Unmarshal(envelope.Data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %w", err)
	}
	return p.toModel(envelope.Data), nil
}

// SetupWebhook registers a callback URL for the given events.
func (c *Client) SetupWebhook(ctx context.Context, callbackURL string, events []string) error {
	body := map[string]any{
		"url":    callbackURL,
		"events": events,
	}
	return c.request(ctx, http.MethodPost, "/webhooks", nil, body, nil)
}

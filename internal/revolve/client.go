package revolve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
)

const (
	signInPath            = "/content/checkout/shopify/access/signin"
	orderPath             = "/content/checkout/shopify/order"
	paymentPath           = "/content/checkout/shopify/payment"
	responseBodyReadLimit = 1024
	defaultHTTPTimeout    = 15 * time.Second
)

var (
	errServerURLRequired = errors.New("revolve server url is required")

	// ErrUnauthorized marks a rejected token so callers can refresh and retry once.
	ErrUnauthorized = errors.New("revolve rejected credentials")
)

// Credentials is the token pair issued by the sign-in endpoint.
type Credentials struct {
	Token  string
	UserID string
}

func (c Credentials) complete() bool {
	return strings.TrimSpace(c.Token) != "" && strings.TrimSpace(c.UserID) != ""
}

// Client talks to the Revolve checkout backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenID     string
	tokenSecret string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the downstream client from its server URL and sign-in pair.
func NewClient(serverURL, tokenID, tokenSecret string, timeout time.Duration, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if base == "" {
		return nil, errServerURLRequired
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     base,
		tokenID:     tokenID,
		tokenSecret: tokenSecret,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SignIn exchanges the configured id/secret for a token pair.
func (c *Client) SignIn(ctx context.Context) (*Credentials, error) {
	query := url.Values{}
	query.Set("id", c.tokenID)
	query.Set("secret", c.tokenSecret)

	var resp struct {
		Token  flexString `json:"token"`
		UserID flexString `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, signInPath, query, nil, &resp); err != nil {
		return nil, err
	}
	creds := &Credentials{Token: string(resp.Token), UserID: string(resp.UserID)}
	if !creds.complete() {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "revolve sign-in returned no token")
	}
	return creds, nil
}

// OrderResult is the downstream answer to an order submission.
type OrderResult struct {
	Success bool `json:"success"`
	Orders  struct {
		Instock struct {
			Invoice flexString `json:"invoice"`
		} `json:"instock"`
	} `json:"orders"`
	Message string `json:"message,omitempty"`
}

// Invoice returns the in-stock invoice number, if any.
func (r *OrderResult) Invoice() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Orders.Instock.Invoice))
}

// PaymentResult is the downstream answer to a payment submission.
type PaymentResult struct {
	Success bool            `json:"success"`
	Orders  json.RawMessage `json:"orders,omitempty"`
	Message string          `json:"message,omitempty"`
}

// SubmitOrder posts a new order. A response with success=false is returned as a dependency error.
func (c *Client) SubmitOrder(ctx context.Context, creds Credentials, payload OrderPayload) (*OrderResult, error) {
	var result OrderResult
	if err := c.do(ctx, http.MethodPost, orderPath, credentialQuery(creds), payload, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, pkgerrors.New(pkgerrors.CodeDependency, "revolve rejected order").
			WithDetails(map[string]any{"message": result.Message})
	}
	return &result, nil
}

// SubmitPayment posts the payment confirmation for a paid order.
func (c *Client) SubmitPayment(ctx context.Context, creds Credentials, payload PaymentPayload) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, paymentPath, credentialQuery(creds), payload, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return &result, pkgerrors.New(pkgerrors.CodeDependency, "revolve rejected payment").
			WithDetails(map[string]any{"message": result.Message})
	}
	return &result, nil
}

func credentialQuery(creds Credentials) url.Values {
	query := url.Values{}
	query.Set("token", creds.Token)
	query.Set("userId", creds.UserID)
	return query
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "revolve client not configured")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal revolve request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build revolve request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute revolve request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrUnauthorized, "revolve request unauthorized")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"revolve request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode revolve response")
	}
	return nil
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

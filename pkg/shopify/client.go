package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/orderbridge/pkg/logger"
)

const (
	defaultAPIVersion           = "2025-01"
	defaultTimeout              = 30 * time.Second
	accessTokenHeader           = "X-Shopify-Access-Token"
	responseBodyReadLimit int64 = 4 << 20
	errorBodyReadLimit    int64 = 1024
)

var (
	errShopRequired        = errors.New("shopify shop domain is required")
	errAccessTokenRequired = errors.New("shopify access token is required")
	errLoggerRequired      = errors.New("shopify logger is required")
)

// Options configures a Client for one shop.
type Options struct {
	Shop        string
	AccessToken string
	APIVersion  string
	HTTPClient  *http.Client
	Logger      *logger.Logger
	// Endpoint overrides the derived GraphQL URL.
	Endpoint string
}

// Client talks to the Admin GraphQL API of a single shop. It never retries.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	shop        string
	accessToken string
	logger      *logger.Logger
}

// NewClient validates the options and builds the Admin API client.
func NewClient(opts Options) (*Client, error) {
	if opts.Logger == nil {
		return nil, errLoggerRequired
	}
	shop := strings.TrimSpace(opts.Shop)
	if shop == "" {
		return nil, errShopRequired
	}
	token := strings.TrimSpace(opts.AccessToken)
	if token == "" {
		return nil, errAccessTokenRequired
	}

	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = defaultAPIVersion
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, version)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		httpClient:  httpClient,
		endpoint:    endpoint,
		shop:        shop,
		accessToken: token,
		logger:      opts.Logger,
	}, nil
}

// Shop returns the shop domain the client is bound to.
func (c *Client) Shop() string {
	if c == nil {
		return ""
	}
	return c.shop
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

type graphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

// execute posts one GraphQL document and decodes its data member into out.
func (c *Client) execute(ctx context.Context, op, query string, variables map[string]any, out any) error {
	if c == nil || c.httpClient == nil {
		return &Error{Kind: KindTransport, Operation: op, Message: "shopify client not configured"}
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return &Error{Kind: KindProtocol, Operation: op, Message: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindTransport, Operation: op, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(accessTokenHeader, c.accessToken)

	started := time.Now()
	c.log(ctx, "request", op, variables)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(ctx, &Error{Kind: KindTransport, Operation: op, Message: "execute request", Cause: err})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return c.fail(ctx, statusError(op, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var envelope graphQLResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(&envelope); err != nil {
		return c.fail(ctx, &Error{Kind: KindProtocol, Operation: op, StatusCode: resp.StatusCode, Message: "decode response", Cause: err})
	}
	if len(envelope.Errors) > 0 {
		return c.fail(ctx, graphQLFailure(op, envelope.Errors))
	}
	if out != nil {
		if len(envelope.Data) == 0 || bytes.Equal(envelope.Data, []byte("null")) {
			return c.fail(ctx, &Error{Kind: KindProtocol, Operation: op, StatusCode: resp.StatusCode, Message: "response carried no data"})
		}
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return c.fail(ctx, &Error{Kind: KindProtocol, Operation: op, StatusCode: resp.StatusCode, Message: "decode data", Cause: err})
		}
	}

	c.log(ctx, "response", op, map[string]any{"duration_ms": time.Since(started).Milliseconds()})
	return nil
}

// check converts a mutation's userErrors into a gateway failure, logging it.
func (c *Client) check(ctx context.Context, op string, userErrors []UserError) error {
	err := userErrorsFailure(op, userErrors)
	if err == nil {
		return nil
	}
	return c.fail(ctx, err)
}

func (c *Client) fail(ctx context.Context, err *Error) error {
	if c != nil && c.logger != nil {
		fields := map[string]any{
			"operation": err.Operation,
			"kind":      string(err.Kind),
		}
		if err.StatusCode != 0 {
			fields["status"] = err.StatusCode
		}
		if len(err.UserErrors) > 0 {
			fields["user_errors"] = err.UserErrors
		}
		c.logger.Error(c.logger.WithFields(ctx, fields), fmt.Sprintf("shopify %s failed", err.Operation), err)
	}
	return err
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
		"shop":      c.shop,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	c.logger.Debug(c.logger.WithFields(ctx, logFields), fmt.Sprintf("shopify %s %s", op, phase))
}

package sessions

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/orderbridge/pkg/db/models"
	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/shopify"
	"gorm.io/gorm"
)

const defaultDomainSuffix = ".myshopify.com"

type sessionFinder interface {
	FindByShop(ctx context.Context, shop string) (*models.ShopifySession, error)
}

// Credentials identify one shop's Admin API access.
type Credentials struct {
	Shop        string
	AccessToken string
}

// ResolverOptions configures gateway construction for resolved shops.
type ResolverOptions struct {
	DomainSuffix string
	APIVersion   string
	HTTPTimeout  time.Duration
	HTTPClient   *http.Client
}

// Resolver turns the inbound Store header into a shop gateway.
type Resolver struct {
	repo   sessionFinder
	opts   ResolverOptions
	logg   *logger.Logger
	client *http.Client
}

// NewResolver wires the session lookup used by order endpoints and webhooks.
func NewResolver(repo sessionFinder, opts ResolverOptions, logg *logger.Logger) (*Resolver, error) {
	if repo == nil {
		return nil, errors.New("session repository required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(opts.DomainSuffix) == "" {
		opts.DomainSuffix = defaultDomainSuffix
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.HTTPTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Resolver{repo: repo, opts: opts, logg: logg, client: client}, nil
}

// NormalizeShop appends the store domain suffix when the header carries a bare store name.
func (r *Resolver) NormalizeShop(store string) string {
	store = strings.ToLower(strings.TrimSpace(store))
	if store == "" {
		return ""
	}
	if strings.HasSuffix(store, r.opts.DomainSuffix) {
		return store
	}
	return store + r.opts.DomainSuffix
}

// Resolve looks up the session for store. A missing header or unknown shop is a validation failure.
func (r *Resolver) Resolve(ctx context.Context, store string) (*Credentials, error) {
	shop := r.NormalizeShop(store)
	if shop == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no store header")
	}

	session, err := r.repo.FindByShop(ctx, shop)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logg.Warn(r.logg.WithShop(ctx, shop), "no session found for store")
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no session found for store").
				WithDetails(map[string]any{"shop": shop})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop session")
	}
	return &Credentials{Shop: shop, AccessToken: session.AccessToken}, nil
}

// Gateway resolves store and builds an Admin API client for it.
func (r *Resolver) Gateway(ctx context.Context, store string) (*shopify.Client, error) {
	creds, err := r.Resolve(ctx, store)
	if err != nil {
		return nil, err
	}
	return r.GatewayFor(creds)
}

// GatewayFor builds an Admin API client from already resolved credentials.
func (r *Resolver) GatewayFor(creds *Credentials) (*shopify.Client, error) {
	if creds == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials required")
	}
	client, err := shopify.NewClient(shopify.Options{
		Shop:        creds.Shop,
		AccessToken: creds.AccessToken,
		APIVersion:  r.opts.APIVersion,
		HTTPClient:  r.client,
		Logger:      r.logg,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build shopify client")
	}
	return client, nil
}

package middleware

import (
	"context"

	"github.com/angelmondragon/orderbridge/internal/sessions"
)

type contextKey string

const ctxShop contextKey = "shop_credentials"

// ShopFromContext returns the credentials resolved by ShopSession.
func ShopFromContext(ctx context.Context) (*sessions.Credentials, bool) {
	if ctx == nil {
		return nil, false
	}
	creds, ok := ctx.Value(ctxShop).(*sessions.Credentials)
	return creds, ok && creds != nil
}

// WithShop injects resolved shop credentials into the context.
func WithShop(ctx context.Context, creds *sessions.Credentials) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShop, creds)
}

func shopDomain(ctx context.Context) string {
	if creds, ok := ShopFromContext(ctx); ok {
		return creds.Shop
	}
	return ""
}

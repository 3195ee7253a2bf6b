package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/orderbridge/api/responses"
	"github.com/angelmondragon/orderbridge/internal/sessions"
	"github.com/angelmondragon/orderbridge/pkg/logger"
)

// StoreHeader names the header carrying the target shop.
const StoreHeader = "Store"

// ShopResolver resolves a Store header value into credentials.
type ShopResolver interface {
	Resolve(ctx context.Context, store string) (*sessions.Credentials, error)
}

// ShopSession resolves the Store header into installed-shop credentials.
func ShopSession(resolver ShopResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, err := resolver.Resolve(r.Context(), r.Header.Get(StoreHeader))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := WithShop(r.Context(), creds)
			if logg != nil {
				ctx = logg.WithShop(ctx, creds.Shop)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

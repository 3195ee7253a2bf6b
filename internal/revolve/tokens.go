package revolve

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/orderbridge/pkg/logger"
)

const (
	tokenKeyName  = "revolve_token"
	userIDKeyName = "revolve_userId"
)

type credentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CredentialKey(name string) string
}

type signer interface {
	SignIn(ctx context.Context) (*Credentials, error)
}

// TokenCache keeps one downstream token pair in Redis, shared by every
// process. A refresh overwrites both slots.
type TokenCache struct {
	store  credentialStore
	signer signer
	logg   *logger.Logger
	mu     sync.Mutex
}

// NewTokenCache wires the credential cache.
func NewTokenCache(store credentialStore, signer signer, logg *logger.Logger) (*TokenCache, error) {
	if store == nil {
		return nil, errors.New("credential store required")
	}
	if signer == nil {
		return nil, errors.New("revolve signer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &TokenCache{store: store, signer: signer, logg: logg}, nil
}

// Credentials returns the cached pair, signing in when either slot is empty.
func (c *TokenCache) Credentials(ctx context.Context) (Credentials, error) {
	cached, err := c.load(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if cached.complete() {
		return cached, nil
	}
	return c.Refresh(ctx)
}

// Refresh signs in and overwrites the cached pair.
func (c *TokenCache) Refresh(ctx context.Context) (Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	creds, err := c.signer.SignIn(ctx)
	if err != nil {
		c.logg.Error(ctx, "revolve sign-in failed", err)
		return Credentials{}, err
	}
	if err := c.store.Set(ctx, c.store.CredentialKey(tokenKeyName), creds.Token, 0); err != nil {
		return Credentials{}, fmt.Errorf("cache revolve token: %w", err)
	}
	if err := c.store.Set(ctx, c.store.CredentialKey(userIDKeyName), creds.UserID, 0); err != nil {
		return Credentials{}, fmt.Errorf("cache revolve user id: %w", err)
	}
	c.logg.Info(ctx, "revolve credentials refreshed")
	return *creds, nil
}

func (c *TokenCache) load(ctx context.Context) (Credentials, error) {
	token, err := c.get(ctx, tokenKeyName)
	if err != nil {
		return Credentials{}, err
	}
	userID, err := c.get(ctx, userIDKeyName)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Token: token, UserID: userID}, nil
}

func (c *TokenCache) get(ctx context.Context, name string) (string, error) {
	value, err := c.store.Get(ctx, c.store.CredentialKey(name))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("read cached %s: %w", name, err)
	}
	return value, nil
}

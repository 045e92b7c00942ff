// internal/vault/vault.go
//
// HashiCorp Vault access for boot-time secrets.
//
// Context
// -------
// Config values may reference Vault instead of carrying the secret
// inline: `vault:secret/data-path#key`.  Resolve expands such
// references at startup (database password, object-store secret key);
// plain values pass through untouched.  A background loop keeps the
// token renewed for long-lived processes.

package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// RefPrefix marks a config value as a Vault reference.
const RefPrefix = "vault:"

// Client wraps the Vault SDK with KV-v2 helpers and per-key caching.
// Safe for concurrent use; construct with New.
type Client struct {
	api *vault.Client

	mu    sync.RWMutex
	cache map[string]cached // "path#key" → value
}

type cached struct {
	val string
	exp time.Time
}

// New builds a client from the standard VAULT_* environment (VAULT_ADDR,
// VAULT_TOKEN) and starts token renewal.  ctx cancellation stops the
// renewal loop.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env config: %w", err)
	}

	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := &Client{api: api, cache: make(map[string]cached)}
	go c.renewLoop(ctx)
	return c, nil
}

// IsRef reports whether a config value is a Vault reference.
func IsRef(v string) bool { return strings.HasPrefix(v, RefPrefix) }

// Resolve expands a `vault:path#key` reference; non-references return
// unchanged.  A nil client with a reference is a config error.
func Resolve(ctx context.Context, c *Client, v string) (string, error) {
	if !IsRef(v) {
		return v, nil
	}
	if c == nil {
		return "", fmt.Errorf("value %q needs Vault but VAULT_ADDR is not configured", v)
	}
	ref := strings.TrimPrefix(v, RefPrefix)
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("malformed vault reference %q, want vault:path#key", v)
	}
	return c.GetKV(ctx, path, key, time.Hour)
}

// GetKV reads one key from a KV-v2 secret.  ttl > 0 caches the value so
// repeated resolutions during boot hit Vault once.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.mu.RLock()
		cv, ok := c.cache[canonical]
		c.mu.RUnlock()
		if ok && time.Now().Before(cv.exp) {
			return cv.val, nil
		}
	}

	mount, rel, _ := strings.Cut(secretPath, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.mu.Lock()
		c.cache[canonical] = cached{val: val, exp: time.Now().Add(ttl)}
		c.mu.Unlock()
	}
	return val, nil
}

// renewLoop keeps the token fresh.  Non-renewable tokens (root, batch)
// just re-probe hourly.
func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelf(0)
		if err != nil {
			zap.S().Warnw("vault token renew-self failed", "error", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			sleep(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
		})
		if err != nil {
			zap.S().Warnw("vault lifetime watcher init failed", "error", err)
			sleep(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()
		c.watch(ctx, watcher)
	}
}

func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				zap.S().Warnw("vault token renewal stopped", "error", err)
			}
			sleep(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				zap.S().Debugw("vault token renewed", "ttl_seconds", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
//   - Wraps the HashiCorp Vault Go SDK with KV-v2 helpers, per-key caching,
//     and optional background token renewal.
//   - Secrets reach the rest of the app through config values of the form
//     `vault:<mount>/<path>#<key>`, resolved once at boot by
//     internal/config.  Gmail OAuth credentials, the Places API key, the
//     CSRF key, and the database password all travel this way in
//     production.
//   - Header block, section underlines, Oxford commas, two spaces after
//     periods.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx, vault.Options{})        // during boot.
//  2. v,   err := cli.Resolve(ctx, "vault:secret/site#key")
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Prefix marks a config value as a Vault reference.
const Prefix = "vault:"

// DefaultTTL is how long resolved secrets stay cached.
const DefaultTTL = 5 * time.Minute

//
// SECTION 1.  Public façade
//

// Options configures New.  Empty Address and Token fall back to VAULT_ADDR
// and VAULT_TOKEN.
type Options struct {
	Address string
	Token   string
	Renew   bool // start the token renewal loop
}

// Client is safe for concurrent use.  Zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	cacheMu sync.RWMutex
	cache   map[string]cached // path#key → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client.  With Options.Renew the token renewal loop
// runs until ctx is cancelled.
func New(ctx context.Context, o Options) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	if o.Address != "" {
		cfg.Address = o.Address
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if o.Token != "" {
		apiCli.SetToken(o.Token)
	}

	c := &Client{
		api:   apiCli,
		log:   zap.S().Named("vault"),
		cache: make(map[string]cached),
	}
	if o.Renew {
		go c.renewLoop(ctx)
	}
	return c, nil
}

// GetKV fetches a single key from a KV-v2 secret.  If ttl > 0 the result is
// cached for that duration.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	if secretPath == "" || key == "" {
		return "", errors.New("secret path and key must be non-empty")
	}
	canonical := secretPath + "#" + key

	if ttl > 0 {
		c.cacheMu.RLock()
		if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
			c.cacheMu.RUnlock()
			return cv.val, nil
		}
		c.cacheMu.RUnlock()
	}

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s#%s is not a string", secretPath, key)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

// Resolve turns a `vault:<mount>/<path>#<key>` reference into its value.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	p, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, p, key, DefaultTTL)
}

// ParseRef splits a reference into secret path and key.
func ParseRef(ref string) (path, key string, err error) {
	body, ok := strings.CutPrefix(ref, Prefix)
	if !ok {
		return "", "", fmt.Errorf("vault: %q lacks %q prefix", ref, Prefix)
	}
	path, key, ok = strings.Cut(body, "#")
	if !ok || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", fmt.Errorf("vault: reference %q must look like vault:<mount>/<path>#<key>", ref)
	}
	return path, key, nil
}

//
// SECTION 2.  Background token renewal
//

func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("token renew self failed", "error", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("token is not renewable, sleeping 1h")
			sleep(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
			Secret: sec,
			Grace:  15 * time.Second,
		})
		if err != nil {
			c.log.Warnw("lifetime watcher init failed", "error", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, w)
	}
}

// watch blocks until the watcher stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("token renewal stopped", "error", err)
			}
			sleep(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("token renewed", "ttl_s", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

//
// SECTION 3.  Helpers
//

func splitMount(p string) (mount, rel string) {
	mount, rel, _ = strings.Cut(p, "/")
	return
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// internal/config/loader.go
//
// Configuration loader and hot-reloader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `TRADE_`, where `__` maps to “.”
     (e.g., `TRADE_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, every string value that starts with `vault:` is swapped
for the secret it names, using the Resolver the caller supplies.  The tree
is then unmarshalled into strongly-typed structs, validated, enriched with
the runtime root path, and cached in an `atomic.Pointer` for lock-free
reads.  `Reload()` simply calls `Load()` again and swaps the pointer.

Instrumentation
---------------
  • DEBUG spans: root discovery, YAML read, env overlay, vault refs.
  • ERROR spans: YAML parse, env overlay, vault, unmarshal, validation.
  • INFO span: final “config loaded” with key highlights.
  • Logs use the global *sugared* logger (`zap.S()`) so early boot issues
    surface even before the file logger is installed (bootstrap console).

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "TRADE_"

// VaultPrefix marks values resolved through a Resolver.
const VaultPrefix = "vault:"

// Resolver turns a `vault:` reference into the secret it names.
// (*vault.Client).Resolve satisfies it.
type Resolver func(ctx context.Context, ref string) (string, error)

// ErrNoResolver is returned when the tree holds vault refs but no Resolver
// was given.
var ErrNoResolver = errors.New("config: vault reference found but no resolver configured")

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves TRADE_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves vault refs, validates, and
// caches Config.  resolve may be nil when no vault refs are present.
func Load(ctx context.Context, resolve Resolver) (*Config, error) {
	return LoadDir(ctx, rootDir(), resolve)
}

// LoadDir is Load with an explicit root.
func LoadDir(ctx context.Context, root string, resolve Resolver) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	// Env overrides: TRADE_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, EnvPrefix), "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	if err := resolveRefs(ctx, k, resolve); err != nil {
		zap.S().Errorw("config vault resolution failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"gmail", cfg.Mail.Gmail.ClientID != "",
		"places", cfg.Places.APIKey != "",
		"database", cfg.Database.Enabled(),
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveRefs replaces every `vault:` string in k.  Keys are visited in
// sorted order so errors are deterministic.
func resolveRefs(ctx context.Context, k *koanf.Koanf, resolve Resolver) error {
	all := k.All()
	keys := make([]string, 0, len(all))
	for key, val := range all {
		if s, ok := val.(string); ok && strings.HasPrefix(s, VaultPrefix) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if resolve == nil {
		return fmt.Errorf("%w (%s)", ErrNoResolver, strings.Join(keys, ", "))
	}
	sort.Strings(keys)
	for _, key := range keys {
		secret, err := resolve(ctx, k.String(key))
		if err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		if err := k.Set(key, secret); err != nil {
			return fmt.Errorf("config %s: %w", key, err)
		}
		zap.S().Debugw("config vault ref resolved", "key", key)
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context, resolve Resolver) error {
	_, err := Load(ctx, resolve)
	return err
}

// internal/vault/vault.go
//
// Secret references for the chef site config.
//
// Context
// -------
// Any config string written as `vault:<mount>/<path>#<key>` is a Ref.  The
// database password is the usual one; admin or Instagram credentials can
// be moved to Vault the same way without code changes.  config.Load
// parses each reference with ParseRef and hands it to Secrets.Resolve,
// which reads the KV-v2 secret and caches the value for a short TTL.
//
// The token Secrets was built with has to outlive start-up, since
// cache misses after boot go back to Vault.  KeepAlive renews it for as
// long as its context lives; cmd/web runs it on the signal context so
// renewal ends with the server.
//
// Workflow
// --------
//  1. if vault.Configured() { s, err := vault.New(ttl) }   // boot.
//  2. config.Load(ctx, s)                                 // Resolve per ref.
//  3. go s.KeepAlive(ctx)                                 // until shutdown.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/cache"
)

// cachedSecrets bounds the Resolve cache; config holds a handful of refs.
const cachedSecrets = 64

// ErrBadRef is returned by ParseRef for strings not shaped mount/path#key.
var ErrBadRef = errors.New("bad vault reference")

// Ref names one key of a KV-v2 secret.
type Ref struct {
	Mount string
	Path  string
	Key   string
}

// ParseRef splits "mount/path#key".  The mount and the path below it are
// both required.
func ParseRef(s string) (Ref, error) {
	loc, key, ok := strings.Cut(s, "#")
	mount, path, _ := strings.Cut(loc, "/")
	if !ok || key == "" || mount == "" || path == "" {
		return Ref{}, fmt.Errorf("%w %q (want mount/path#key)", ErrBadRef, s)
	}
	return Ref{Mount: mount, Path: path, Key: key}, nil
}

func (r Ref) String() string { return r.Mount + "/" + r.Path + "#" + r.Key }

// kvReader reads the data map of a KV-v2 secret.
type kvReader interface {
	Read(ctx context.Context, mount, path string) (map[string]any, error)
}

type apiKV struct{ c *vault.Client }

func (a apiKV) Read(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := a.c.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// Secrets resolves Refs.  Safe for concurrent use.
type Secrets struct {
	api   *vault.Client
	kv    kvReader
	cache *cache.LRU[Ref, string]
	log   *zap.SugaredLogger
}

// Configured reports whether VAULT_ADDR is set.  Sites without Vault keep
// plain values in YAML or env and never build Secrets.
func Configured() bool { return os.Getenv("VAULT_ADDR") != "" }

// New builds Secrets from the standard VAULT_* environment.  Resolved
// values are cached for ttl; ttl <= 0 caches them until restart.
func New(ttl time.Duration) (*Secrets, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}
	c, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	s := newSecrets(apiKV{c}, ttl)
	s.api = c
	return s, nil
}

func newSecrets(kv kvReader, ttl time.Duration) *Secrets {
	if ttl < 0 {
		ttl = 0
	}
	return &Secrets{
		kv:    kv,
		cache: cache.New[Ref, string](cachedSecrets, ttl),
		log:   zap.S().With("component", "vault"),
	}
}

// Resolve returns the string stored at ref.
func (s *Secrets) Resolve(ctx context.Context, ref Ref) (string, error) {
	if v, ok := s.cache.Get(ref); ok {
		return v, nil
	}
	data, err := s.kv.Read(ctx, ref.Mount, ref.Path)
	if err != nil {
		return "", fmt.Errorf("vault read %s/%s: %w", ref.Mount, ref.Path, err)
	}
	raw, ok := data[ref.Key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not in %s/%s", ref.Key, ref.Mount, ref.Path)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is not a string", ref)
	}
	s.cache.Add(ref, val)
	s.log.Debugw("secret resolved", "ref", ref.Mount+"/"+ref.Path, "key", ref.Key)
	return val, nil
}

/*──────────────────────────── token renewal ───────────────────────────────*/

// errNotRenewable ends KeepAlive: root and batch tokens cannot be renewed
// and do not need to be.
var errNotRenewable = errors.New("vault token is not renewable")

// KeepAlive renews the client token until ctx is done.  Failed renewals
// are retried with exponential backoff capped at five minutes.
func (s *Secrets) KeepAlive(ctx context.Context) {
	if s.api == nil {
		return
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 5 * time.Second
	eb.MaxInterval = 5 * time.Minute
	eb.MaxElapsedTime = 0

	for {
		err := s.watchToken(ctx, eb)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, errNotRenewable):
			s.log.Infow("token renewal off", "reason", err)
			return
		}
		wait := eb.NextBackOff()
		s.log.Warnw("token renewal interrupted", "err", err, "retry_in", wait)
		sleep(ctx, wait)
	}
}

// watchToken renews once, then follows the lease until it ends.
func (s *Secrets) watchToken(ctx context.Context, eb *backoff.ExponentialBackOff) error {
	sec, err := s.api.Auth().Token().RenewSelfWithContext(ctx, 0)
	if err != nil {
		return err
	}
	if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
		return errNotRenewable
	}

	w, err := s.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
	if err != nil {
		return err
	}
	go w.Start()
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-w.DoneCh():
			if err == nil {
				err = errors.New("token lease ended")
			}
			return err
		case out := <-w.RenewCh():
			eb.Reset()
			if out != nil && out.Secret != nil && out.Secret.Auth != nil {
				s.log.Debugw("token renewed", "ttl_s", out.Secret.Auth.LeaseDuration)
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

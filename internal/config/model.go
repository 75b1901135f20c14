// internal/config/model.go
//
// Typed configuration model for the chef site.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                        – dotenv values,
//   • `conf/global.yaml`                     – primary static file,
//   • `CHEF_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with `vault:` is resolved through Vault
// *before* unmarshalling, so the model never stores Vault references, only
// plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • Durations accept Go syntax ("750ms", "5m").
//   • An empty database DSN is valid: the site then serves fixtures and
//     every write fails with database.ErrUnavailable.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"gte=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"gte=0"`

	// CORSOrigins lists origins allowed to call the JSON API from a
	// browser, typically the admin app.  Empty disables CORS headers.
	CORSOrigins []string `koanf:"cors_origins" validate:"dive,url"`
}

//
// Database section
//

// Database holds the DSN template and its secret.
//
// The template (`DSN`) lives in YAML so operators can change host, port,
// or flags without touching Vault.  The password is usually a
// `vault:` reference and is injected into the DSN at startup.
type Database struct {
	DSN             string        `koanf:"dsn"               validate:"mysql_dsn"`
	Password        string        `koanf:"password"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`
	Retries         int           `koanf:"retries"           validate:"gte=0,lte=10"`
	RetryBackoff    time.Duration `koanf:"retry_backoff"     validate:"gte=0"`
	ApplySchema     bool          `koanf:"apply_schema"`
}

//
// Settings section
//

// Settings selects where site settings persist.
type Settings struct {
	Backend   string        `koanf:"backend"    validate:"oneof=sql local"`
	CacheTTL  time.Duration `koanf:"cache_ttl"  validate:"gte=0"`
	LocalPath string        `koanf:"local_path" validate:"required_if=Backend local"`
}

//
// Instagram section
//

// Instagram tunes the feed cache.  The account and token themselves are
// site settings, editable from the admin screens.
type Instagram struct {
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`
	Timeout  time.Duration `koanf:"timeout"   validate:"gte=0"`
}

//
// Log section
//

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // CHEF_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Settings  Settings  `koanf:"settings"`
	Instagram Instagram `koanf:"instagram"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}

// applyDefaults fills zero values the YAML may leave out.
func (c *Config) applyDefaults() {
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.IdleTimeout == 0 {
		c.HTTP.IdleTimeout = 60 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 15
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.RetryBackoff == 0 {
		c.Database.RetryBackoff = 500 * time.Millisecond
	}
	if c.Settings.Backend == "" {
		c.Settings.Backend = "sql"
	}
	if c.Instagram.CacheTTL == 0 {
		c.Instagram.CacheTTL = time.Hour
	}
	if c.Instagram.Timeout == 0 {
		c.Instagram.Timeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// internal/config/model.go
//
// Typed configuration model for Strata.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                          – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `STRATA_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling, so secrets stay out of
// flat files and git history.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`–Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Platform section
//

// Platform describes the hosting identity: the base domain under which
// tenant subdomains live (e.g., `strata.site` serves `{sub}.strata.site`).
type Platform struct {
	BaseDomain string `koanf:"base_domain" validate:"required,fqdn"`
}

//
// Database section
//

// Database holds the control-plane DSN and its Vault-resolved secret.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password" validate:"required"`
}

//
// Redis section
//

// Redis configures the best-effort cache backend.  An empty Addr runs
// the platform cacheless (every lookup hits the row store).
type Redis struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

//
// Storage section
//

// Storage points at the S3-compatible object store holding deployment
// files.
type Storage struct {
	Endpoint  string `koanf:"endpoint"   validate:"required"`
	Bucket    string `koanf:"bucket"     validate:"required"`
	AccessKey string `koanf:"access_key" validate:"required"`
	SecretKey string `koanf:"secret_key" validate:"required"`
	UseSSL    bool   `koanf:"use_ssl"`
}

//
// GitHub section
//

// GitHub holds the upstream API base URL.  Overridable so tests and
// GitHub Enterprise installs can point elsewhere.
type GitHub struct {
	APIBaseURL string `koanf:"api_base_url"`
}

//
// GeoIP section
//

// GeoIP optionally points at a MaxMind City database for access-log
// enrichment.  Empty path disables geo lookups.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime–never set in YAML or env.  The loader
// discovers `Root` (repo root or STRATA_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // STRATA_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Platform Platform `koanf:"platform"`
	Database Database `koanf:"database"`
	Redis    Redis    `koanf:"redis"`
	Storage  Storage  `koanf:"storage"`
	GitHub   GitHub   `koanf:"github"`
	GeoIP    GeoIP    `koanf:"geoip"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}

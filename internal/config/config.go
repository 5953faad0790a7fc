package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gatehouse.json"

	// DefaultPort is the default listen port.
	DefaultPort = 8080

	// DefaultServedFilesDir is the default document root.
	DefaultServedFilesDir = "www"

	// DefaultContentLanguage is the language served when no localized
	// variant of a file exists.
	DefaultContentLanguage = "en"

	// DefaultMaxCacheEntryMB caps the size of one cached file.
	DefaultMaxCacheEntryMB = 10

	// DefaultMaxBodyMB caps POST and DELETE request bodies.
	DefaultMaxBodyMB = 10

	// DefaultUploadMaxFileMB caps one uploaded file.
	DefaultUploadMaxFileMB = 10
)

// MapEntry is one pattern-to-value rule. Patterns ending in "*" match
// by prefix; all others match exactly.
type MapEntry struct {
	// Pattern is the URI pattern to match.
	Pattern string `json:"pattern"`

	// Value is the replacement, destination or header value.
	Value string `json:"value"`
}

// OriginEntry pairs a destination URI pattern with the origin allowed
// to call it.
type OriginEntry struct {
	// Dest is the URI pattern the rule applies to.
	Dest string `json:"dest"`

	// Origin is the allowed origin; "*" allows any.
	Origin string `json:"origin"`
}

// GatedArea describes one subtree protected by the gatekeeper.
type GatedArea struct {
	// ID names the area in cookies and login URLs.
	ID string `json:"id"`

	// Name is the human-readable title shown on the login page.
	Name string `json:"name,omitempty"`

	// Prefix is the URI prefix the area protects.
	Prefix string `json:"prefix"`

	// Image is the logo path substituted into the login page.
	Image string `json:"image,omitempty"`

	// Home is the path users land on after leaving the area.
	Home string `json:"home,omitempty"`

	// Terms is the terms-of-service URL shown on the login page.
	Terms string `json:"terms,omitempty"`
}

// GatekeeprConfig configures session-gated access.
type GatekeeprConfig struct {
	// Database is the SQLite database path holding users and sessions.
	// Empty disables gating entirely.
	Database string `json:"database,omitempty"`

	// GoogleClientID is the OAuth client id embedded in the login page.
	GoogleClientID string `json:"google-client-id,omitempty"`

	// GatedAreas lists the protected subtrees.
	GatedAreas []GatedArea `json:"gated-areas,omitempty"`
}

// UploadsConfig configures the upload endpoint. When S3Bucket is set
// uploads go to S3; otherwise they land in Dir.
type UploadsConfig struct {
	// Dir is the local directory for uploaded files.
	Dir string `json:"dir,omitempty"`

	// S3Bucket selects S3 storage when non-empty.
	S3Bucket string `json:"s3-bucket,omitempty"`

	// S3Prefix is the key prefix inside the bucket.
	S3Prefix string `json:"s3-prefix,omitempty"`

	// MaxFileSizeMB caps one uploaded file.
	MaxFileSizeMB int64 `json:"max-file-size-mb,omitempty"`

	// ExpiryMinutes is how long unclaimed uploads live before cleanup.
	ExpiryMinutes int `json:"expiry-minutes,omitempty"`
}

// WebSocketConfig tunes the WebSocket reactor.
type WebSocketConfig struct {
	// ReadLimitBytes caps one inbound message.
	ReadLimitBytes int64 `json:"read-limit-bytes,omitempty"`

	// QueueCapacity is the outbound packet queue size per connection.
	QueueCapacity int `json:"queue-capacity,omitempty"`

	// IdleTimeoutSeconds closes connections idle this long.
	IdleTimeoutSeconds int `json:"idle-timeout-seconds,omitempty"`

	// DownloadTimeoutSeconds bounds parked download requests.
	DownloadTimeoutSeconds int `json:"download-timeout-seconds,omitempty"`
}

// Config represents the complete gatehouse.json configuration.
type Config struct {
	// Hostname is the public host name used in redirects and login
	// URLs.
	Hostname string `json:"hostname,omitempty"`

	// Port is the listen port.
	Port int `json:"port,omitempty"`

	// ServedFilesDir is the default document root.
	ServedFilesDir string `json:"served-files-dir,omitempty"`

	// ServedFilesDirMap maps URI prefixes to alternate document roots.
	// An empty value disables the subtree.
	ServedFilesDirMap []MapEntry `json:"served-files-dir-map,omitempty"`

	// Error404File is the root-relative document served on 404.
	Error404File string `json:"error-404-file,omitempty"`

	// MemCacheEnabled turns the in-memory content cache on.
	MemCacheEnabled bool `json:"mem-cache-enabled,omitempty"`

	// MemCacheMaxSizeMB caps the size of one cached file.
	MemCacheMaxSizeMB int64 `json:"mem-cache-max-size-mb,omitempty"`

	// DefaultLanguage is served when no Accept-Language candidate has
	// a localized file.
	DefaultLanguage string `json:"default-content-language,omitempty"`

	// URIMap rewrites URIs before path construction.
	URIMap []MapEntry `json:"uri-map,omitempty"`

	// RedirectMap maps exact URIs to permanent-redirect destinations.
	RedirectMap []MapEntry `json:"redirect-map,omitempty"`

	// CacheControlMap selects the Cache-Control header by URI pattern.
	CacheControlMap []MapEntry `json:"cache-control-map,omitempty"`

	// CacheBust lists URI patterns whose html and js content gets
	// version-stamped copies.
	CacheBust []string `json:"cache-bust,omitempty"`

	// NeedsSSIParsing lists URI patterns whose html content gets
	// include directives expanded.
	NeedsSSIParsing []string `json:"needs-ssi-parsing,omitempty"`

	// AllowedOrigins is the CORS allow-list.
	AllowedOrigins []OriginEntry `json:"allowed-origins,omitempty"`

	// PostEndpoints lists URI prefixes accepting POST.
	PostEndpoints []string `json:"post-endpoints,omitempty"`

	// DeleteEndpoints lists exact URIs accepting DELETE.
	DeleteEndpoints []string `json:"delete-endpoints,omitempty"`

	// MaxBodyMB caps POST and DELETE request bodies.
	MaxBodyMB int64 `json:"max-body-mb,omitempty"`

	// Gatekeepr configures session-gated areas.
	Gatekeepr GatekeeprConfig `json:"gatekeepr,omitempty"`

	// Uploads configures the upload endpoint.
	Uploads UploadsConfig `json:"uploads,omitempty"`

	// WebSocket tunes the reactor.
	WebSocket WebSocketConfig `json:"websocket,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Port:              DefaultPort,
		ServedFilesDir:    DefaultServedFilesDir,
		MemCacheMaxSizeMB: DefaultMaxCacheEntryMB,
		DefaultLanguage:   DefaultContentLanguage,
		MaxBodyMB:         DefaultMaxBodyMB,
		Uploads: UploadsConfig{
			MaxFileSizeMB: DefaultUploadMaxFileMB,
			ExpiryMinutes: 60,
		},
	}
}

// Load reads gatehouse.json from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config: no %s found in %s", ConfigFileName, filepath.Dir(path))
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ServedFilesDir == "" {
		c.ServedFilesDir = DefaultServedFilesDir
	}
	if c.MemCacheMaxSizeMB == 0 {
		c.MemCacheMaxSizeMB = DefaultMaxCacheEntryMB
	}
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = DefaultContentLanguage
	}
	if c.MaxBodyMB == 0 {
		c.MaxBodyMB = DefaultMaxBodyMB
	}
	if c.Uploads.MaxFileSizeMB == 0 {
		c.Uploads.MaxFileSizeMB = DefaultUploadMaxFileMB
	}
	if c.Uploads.ExpiryMinutes == 0 {
		c.Uploads.ExpiryMinutes = 60
	}
}

// Validate checks whether the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	for _, e := range c.RedirectMap {
		if e.Pattern == "" || e.Value == "" {
			return fmt.Errorf("config: redirect-map entry needs pattern and value")
		}
	}
	for _, e := range c.URIMap {
		if e.Pattern == "" {
			return fmt.Errorf("config: uri-map entry needs a pattern")
		}
	}
	for _, o := range c.AllowedOrigins {
		if o.Dest == "" || o.Origin == "" {
			return fmt.Errorf("config: allowed-origins entry needs dest and origin")
		}
	}
	for _, a := range c.Gatekeepr.GatedAreas {
		if a.ID == "" {
			return fmt.Errorf("config: gated area without id")
		}
		if !strings.HasPrefix(a.Prefix, "/") {
			return fmt.Errorf("config: gated area %q prefix must start with /", a.ID)
		}
	}
	if len(c.Gatekeepr.GatedAreas) > 0 && c.Gatekeepr.Database == "" {
		return fmt.Errorf("config: gated areas configured without a gatekeepr database")
	}
	return nil
}

// GatingEnabled reports whether any area is protected.
func (c *Config) GatingEnabled() bool {
	return c.Gatekeepr.Database != "" && len(c.Gatekeepr.GatedAreas) > 0
}

// UploadsEnabled reports whether the upload endpoint is configured.
func (c *Config) UploadsEnabled() bool {
	return c.Uploads.Dir != "" || c.Uploads.S3Bucket != ""
}

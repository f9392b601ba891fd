package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 15 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultBaseURL          = "http://localhost:8080"
	defaultLocale           = "fr"
	defaultLocales          = "fr,en,el,ru,it"
	defaultRelayEndpoint    = "https://api.emailjs.com"
	defaultRelayTimeout     = 10 * time.Second
	defaultContactPerMinute = 5
	defaultAutoplayInterval = 5 * time.Second
)

// Config holds runtime configuration grouped by concern.
type Config struct {
	Server     ServerConfig
	Site       SiteConfig
	Paths      PathsConfig
	Session    SessionConfig
	Relay      RelayConfig
	Leads      LeadsConfig
	Secrets    SecretsConfig
	RateLimits RateLimitConfig
	Gallery    GalleryConfig
	Analytics  AnalyticsConfig
	Log        LogConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SiteConfig describes the public site.
type SiteConfig struct {
	BaseURL       string
	DefaultLocale string
	Locales       []string
	Dev           bool
}

// PathsConfig locates templates, assets and content on disk.
type PathsConfig struct {
	Templates string
	Public    string
	Locales   string
	Content   string
}

// SessionConfig signs the session cookie. Ephemeral is set when no secret was
// configured and a random one was generated for this process.
type SessionConfig struct {
	Secret    string
	Secure    bool
	Ephemeral bool
}

// RelayConfig points at the email relay. An empty ServiceID selects the local fake.
type RelayConfig struct {
	Endpoint    string
	ServiceID   string
	TemplateID  string
	PublicKey   string
	AccessToken string
	Timeout     time.Duration
}

// LeadsConfig enables publishing contact events to Pub/Sub.
type LeadsConfig struct {
	ProjectID string
	Topic     string
}

// SecretsConfig configures Secret Manager lookups for secret:// values.
type SecretsConfig struct {
	ProjectID    string
	FallbackFile string
}

// RateLimitConfig throttles form posts per client IP.
type RateLimitConfig struct {
	ContactPerMinute int
}

// GalleryConfig tunes the gallery.
type GalleryConfig struct {
	AutoplayInterval time.Duration
}

// AnalyticsConfig holds tag IDs injected into pages.
type AnalyticsConfig struct {
	GA4ID string
}

// LogConfig controls logging and trace correlation.
type LogConfig struct {
	Level          string
	Console        bool
	TraceProjectID string
}

// SecretResolver resolves secret:// references.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError lists fields that are missing or invalid.
type ValidationError struct {
	fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the offending field names.
func (e *ValidationError) Fields() []string {
	return append([]string(nil), e.fields...)
}

// SecretError describes a failed secret:// lookup.
type SecretError struct {
	Ref string
	Err error
}

func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env path. An empty path disables it.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) { o.envFile = path }
}

// WithEnvMap injects values that take precedence over the process environment.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) { o.envMap = values }
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) { o.useSystemEnv = false }
}

// WithSecretResolver sets the resolver used for secret:// and sm:// values.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) { o.secret = resolver }
}

// Lookup returns the raw value for key with the same precedence Load uses. It lets
// callers read bootstrap settings (such as the secrets project) before Load runs.
func Lookup(key string, opts ...Option) (string, bool) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	dotEnv, err := readDotEnv(options.envFile)
	if err != nil {
		return "", false
	}
	return options.lookup(dotEnv)(key)
}

func defaultOptions() loaderOptions {
	return loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
		secret: SecretResolverFunc(func(ctx context.Context, ref string) (string, error) {
			return "", errSecretResolverNotConfigured
		}),
	}
}

func (o loaderOptions) lookup(dotEnv map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := o.envMap[key]; ok {
			return v, true
		}
		if o.useSystemEnv {
			if v, ok := os.LookupEnv(key); ok {
				return v, true
			}
		}
		v, ok := dotEnv[key]
		return v, ok
	}
}

// Load assembles configuration from defaults, the .env file, the process environment
// and explicit overrides, then resolves secret references.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	dotEnv, err := readDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}
	lookup := options.lookup(dotEnv)

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "VILLA_SERVER_PORT", stringWithDefault(lookup, "PORT", defaultPort)),
			ReadTimeout:  durationWithDefault(lookup, "VILLA_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "VILLA_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "VILLA_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Site: SiteConfig{
			BaseURL:       strings.TrimRight(stringWithDefault(lookup, "VILLA_SITE_BASE_URL", defaultBaseURL), "/"),
			DefaultLocale: strings.ToLower(stringWithDefault(lookup, "VILLA_SITE_DEFAULT_LOCALE", defaultLocale)),
			Locales:       csvWithDefault(lookup, "VILLA_SITE_LOCALES", defaultLocales),
			Dev:           boolWithDefault(lookup, "VILLA_DEV", false),
		},
		Paths: PathsConfig{
			Templates: stringWithDefault(lookup, "VILLA_PATHS_TEMPLATES", "templates"),
			Public:    stringWithDefault(lookup, "VILLA_PATHS_PUBLIC", "public"),
			Locales:   stringWithDefault(lookup, "VILLA_PATHS_LOCALES", "locales"),
			Content:   stringWithDefault(lookup, "VILLA_PATHS_CONTENT", "content"),
		},
		Session: SessionConfig{
			Secret: stringWithDefault(lookup, "VILLA_SESSION_SECRET", ""),
			Secure: boolWithDefault(lookup, "VILLA_SESSION_SECURE", true),
		},
		Relay: RelayConfig{
			Endpoint:    strings.TrimRight(stringWithDefault(lookup, "VILLA_RELAY_ENDPOINT", defaultRelayEndpoint), "/"),
			ServiceID:   stringWithDefault(lookup, "VILLA_RELAY_SERVICE_ID", ""),
			TemplateID:  stringWithDefault(lookup, "VILLA_RELAY_TEMPLATE_ID", ""),
			PublicKey:   stringWithDefault(lookup, "VILLA_RELAY_PUBLIC_KEY", ""),
			AccessToken: stringWithDefault(lookup, "VILLA_RELAY_ACCESS_TOKEN", ""),
			Timeout:     durationWithDefault(lookup, "VILLA_RELAY_TIMEOUT", defaultRelayTimeout),
		},
		Leads: LeadsConfig{
			ProjectID: stringWithDefault(lookup, "VILLA_LEADS_PROJECT_ID", ""),
			Topic:     stringWithDefault(lookup, "VILLA_LEADS_TOPIC", ""),
		},
		Secrets: SecretsConfig{
			ProjectID:    stringWithDefault(lookup, "VILLA_SECRETS_PROJECT_ID", ""),
			FallbackFile: stringWithDefault(lookup, "VILLA_SECRETS_FALLBACK_FILE", ".secrets.local"),
		},
		RateLimits: RateLimitConfig{
			ContactPerMinute: intWithDefault(lookup, "VILLA_RATELIMIT_CONTACT_PER_MIN", defaultContactPerMinute),
		},
		Gallery: GalleryConfig{
			AutoplayInterval: durationWithDefault(lookup, "VILLA_GALLERY_AUTOPLAY_INTERVAL", defaultAutoplayInterval),
		},
		Analytics: AnalyticsConfig{
			GA4ID: stringWithDefault(lookup, "VILLA_ANALYTICS_GA4_ID", ""),
		},
		Log: LogConfig{
			Level:          stringWithDefault(lookup, "VILLA_LOG_LEVEL", "info"),
			Console:        boolWithDefault(lookup, "VILLA_LOG_CONSOLE", false),
			TraceProjectID: stringWithDefault(lookup, "VILLA_TRACE_PROJECT_ID", ""),
		},
	}

	if cfg.Leads.ProjectID == "" {
		cfg.Leads.ProjectID = cfg.Secrets.ProjectID
	}
	if cfg.Site.Dev {
		cfg.Session.Secure = boolWithDefault(lookup, "VILLA_SESSION_SECURE", false)
	}

	secretFields := []*string{&cfg.Relay.AccessToken, &cfg.Session.Secret}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if cfg.Session.Secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return Config{}, fmt.Errorf("config: generate session secret: %w", err)
		}
		cfg.Session.Secret = hex.EncodeToString(buf)
		cfg.Session.Ephemeral = true
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address for the configured port.
func (c Config) Addr() string {
	if strings.Contains(c.Server.Port, ":") {
		return c.Server.Port
	}
	return ":" + c.Server.Port
}

func validate(cfg Config) error {
	var invalid []string
	if _, err := strconv.Atoi(strings.TrimPrefix(cfg.Server.Port, ":")); err != nil {
		invalid = append(invalid, "Server.Port")
	}
	if len(cfg.Site.Locales) == 0 {
		invalid = append(invalid, "Site.Locales")
	}
	found := false
	for _, l := range cfg.Site.Locales {
		if l == cfg.Site.DefaultLocale {
			found = true
		}
	}
	if !found {
		invalid = append(invalid, "Site.DefaultLocale")
	}
	if !strings.HasPrefix(cfg.Site.BaseURL, "http://") && !strings.HasPrefix(cfg.Site.BaseURL, "https://") {
		invalid = append(invalid, "Site.BaseURL")
	}
	if len(cfg.Session.Secret) < 16 {
		invalid = append(invalid, "Session.Secret")
	}
	if cfg.Relay.ServiceID != "" {
		if cfg.Relay.TemplateID == "" {
			invalid = append(invalid, "Relay.TemplateID")
		}
		if cfg.Relay.PublicKey == "" {
			invalid = append(invalid, "Relay.PublicKey")
		}
	}
	if cfg.Relay.Timeout <= 0 {
		invalid = append(invalid, "Relay.Timeout")
	}
	if cfg.RateLimits.ContactPerMinute < 0 {
		invalid = append(invalid, "RateLimits.ContactPerMinute")
	}
	if cfg.Gallery.AutoplayInterval < time.Second {
		invalid = append(invalid, "Gallery.AutoplayInterval")
	}
	if len(invalid) > 0 {
		return &ValidationError{fields: invalid}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "secret://") && !strings.HasPrefix(trimmed, "sm://") {
		return value, nil
	}
	ref := "secret://" + strings.TrimPrefix(strings.TrimPrefix(trimmed, "secret://"), "sm://")
	if resolver == nil {
		return "", &SecretError{Ref: ref, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return strings.TrimSpace(secret), nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key, fallback string) []string {
	raw := stringWithDefault(lookup, key, fallback)
	out := []string{}
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

package secrets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/villa-azur/web/internal/observability"
)

const meterName = "github.com/villa-azur/web/secrets"

// ErrNotFound is returned when neither Secret Manager nor the fallback file has the secret.
var ErrNotFound = errors.New("secrets: not found")

var clientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret:// references against Secret Manager, caching values for the
// life of the process. Without a project or client it reads a local KEY=VALUE file.
type Resolver struct {
	client     secretClient
	ownsClient bool
	project    string
	logger     *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.RWMutex
	cache map[string]string

	meter     metric.Meter
	latency   metric.Float64Histogram
	cacheHits metric.Int64Counter
}

// Option customises a Resolver.
type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackFile sets the local secrets file consulted when Secret Manager is unavailable.
func WithFallbackFile(path string) Option {
	return func(r *Resolver) { r.fallbackPath = strings.TrimSpace(path) }
}

// WithClient injects a Secret Manager client, mostly for tests.
func WithClient(client secretClient) Option {
	return func(r *Resolver) { r.client = client }
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(r *Resolver) { r.meter = m }
}

// New builds a Resolver for project. An empty project means fallback-only.
func New(ctx context.Context, project string, opts ...Option) *Resolver {
	r := &Resolver{
		project:      strings.TrimSpace(project),
		logger:       zap.NewNop(),
		fallbackPath: ".secrets.local",
		cache:        map[string]string{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerMetrics()
	if r.client == nil && r.project != "" {
		client, err := clientFactory(ctx)
		if err != nil {
			r.logger.Warn("secret manager unavailable; using fallback file", zap.Error(err))
		} else {
			r.client = client
			r.ownsClient = true
		}
	}
	return r
}

func (r *Resolver) registerMetrics() {
	if r.meter == nil {
		r.meter = otel.GetMeterProvider().Meter(meterName)
	}
	latency, err := r.meter.Float64Histogram(
		"secrets.fetch.latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for secret fetch attempts"),
	)
	if err != nil {
		r.logger.Warn("secrets: unable to register latency metric", zap.Error(err))
	} else {
		r.latency = latency
	}
	cacheHits, err := r.meter.Int64Counter(
		"secrets.fetch.cache_hits",
		metric.WithDescription("Count of cache hits when resolving secrets"),
	)
	if err != nil {
		r.logger.Warn("secrets: unable to register cache hit metric", zap.Error(err))
	} else {
		r.cacheHits = cacheHits
	}
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ResolveSecret implements config.SecretResolver.
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	name, version, err := parseReference(ref)
	if err != nil {
		return "", err
	}
	key := name + "#" + version

	r.mu.RLock()
	value, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		r.recordCacheHit(ctx, name)
		return value, nil
	}

	if r.client != nil && r.project != "" {
		start := time.Now()
		value, err := r.fetch(ctx, name, version)
		r.recordLatency(ctx, time.Since(start), "secretmanager", err)
		if err == nil {
			r.store(key, value)
			return value, nil
		}
		if !fallbackAllowed(err) {
			return "", fmt.Errorf("secrets: fetch %s: %w", name, err)
		}
		r.logger.Debug("secret manager unreachable; trying fallback", zap.String("secret", name), zap.Error(err))
	}

	start := time.Now()
	value, ok = r.lookupFallback(name)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrNotFound, name)
		r.recordLatency(ctx, time.Since(start), "fallback", err)
		return "", err
	}
	r.recordLatency(ctx, time.Since(start), "fallback", nil)
	r.store(key, value)
	return value, nil
}

func (r *Resolver) recordLatency(ctx context.Context, d time.Duration, source string, err error) {
	if r.latency == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("source", source)}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	r.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))
}

func (r *Resolver) recordCacheHit(ctx context.Context, name string) {
	if r.cacheHits == nil {
		return
	}
	r.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("secret", name)))
}

func (r *Resolver) fetch(ctx context.Context, name, version string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "secretmanager.access", attribute.String("secret.name", name))
	defer span.End()
	resource := fmt.Sprintf("projects/%s/secrets/%s/versions/%s", r.project, name, version)
	resp, err := r.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource})
	if err != nil {
		return "", err
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("empty payload for %s", resource)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (r *Resolver) store(key, value string) {
	r.mu.Lock()
	r.cache[key] = value
	r.mu.Unlock()
}

// lookupFallback reads the local file once. Keys are secret names in env form:
// "relay-token" is stored as RELAY_TOKEN.
func (r *Resolver) lookupFallback(name string) (string, bool) {
	r.fallbackOnce.Do(func() {
		r.fallback = map[string]string{}
		if r.fallbackPath == "" {
			return
		}
		values, err := godotenv.Read(r.fallbackPath)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.logger.Warn("secrets fallback file unreadable", zap.String("path", r.fallbackPath), zap.Error(err))
			}
			return
		}
		r.fallback = values
	})
	value, ok := r.fallback[envKey(name)]
	return value, ok
}

func envKey(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", "/", "_", ".", "_").Replace(name))
}

// parseReference splits "secret://name?version=3" into its name and version.
func parseReference(ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "sm://") {
		ref = "secret://" + strings.TrimPrefix(ref, "sm://")
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "secret" {
		return "", "", fmt.Errorf("secrets: invalid reference %q", ref)
	}
	name := strings.Trim(u.Host+u.Path, "/")
	if name == "" {
		return "", "", fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	version := strings.TrimSpace(u.Query().Get("version"))
	if version == "" {
		version = "latest"
	}
	return name, version, nil
}

func fallbackAllowed(err error) bool {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.Unauthenticated, codes.Unavailable, codes.DeadlineExceeded, codes.NotFound:
		return true
	}
	return false
}

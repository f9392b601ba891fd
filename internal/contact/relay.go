package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/config"
	"github.com/villa-azur/web/internal/observability"
)

const defaultTimeout = 10 * time.Second

// Message is the fixed parameter set the relay template expects.
type Message struct {
	Name            string
	FirstName       string
	Email           string
	CountryDialCode string
	Phone           string
	Message         string
	Source          string
}

func (m Message) params() map[string]string {
	return map[string]string{
		"name":            m.Name,
		"firstName":       m.FirstName,
		"email":           m.Email,
		"countryDialCode": m.CountryDialCode,
		"phone":           m.Phone,
		"message":         m.Message,
		"source":          m.Source,
	}
}

// Relay delivers a message to the site owner.
type Relay interface {
	Send(ctx context.Context, msg Message) error
}

// Client talks to an EmailJS-compatible relay. Without a service ID it only logs.
type Client struct {
	endpoint    string
	serviceID   string
	templateID  string
	publicKey   string
	accessToken string
	http        *http.Client
	logger      *zap.Logger
}

// NewClient builds a relay client from configuration.
func NewClient(cfg config.RelayConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:    strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		serviceID:   strings.TrimSpace(cfg.ServiceID),
		templateID:  strings.TrimSpace(cfg.TemplateID),
		publicKey:   strings.TrimSpace(cfg.PublicKey),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		http:        &http.Client{Timeout: timeout},
		logger:      logger.Named("relay"),
	}
}

// Fake reports whether the client only logs messages.
func (c *Client) Fake() bool { return c == nil || c.serviceID == "" }

// Send posts msg to the relay. Any failure is a *RelayError.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c.Fake() {
		return fakeSend(ctx, c.logger, msg)
	}

	ctx, span := observability.StartSpan(ctx, "relay.send", attribute.String("contact.source", msg.Source))
	defer span.End()

	endpoint, err := url.JoinPath(c.endpoint, "api", "v1.0", "email", "send")
	if err != nil {
		return &RelayError{Text: "invalid endpoint", Err: err}
	}
	payload, err := json.Marshal(sendPayload{
		ServiceID:   c.serviceID,
		TemplateID:  c.templateID,
		UserID:      c.publicKey,
		AccessToken: c.accessToken,
		Params:      msg.params(),
	})
	if err != nil {
		return &RelayError{Text: "encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &RelayError{Text: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "relay unreachable")
		return &RelayError{Text: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := &RelayError{Status: resp.StatusCode, Text: drainError(resp.Body)}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, "relay rejected message")
		return rerr
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return nil
}

type sendPayload struct {
	ServiceID   string            `json:"service_id"`
	TemplateID  string            `json:"template_id"`
	UserID      string            `json:"user_id"`
	AccessToken string            `json:"accessToken,omitempty"`
	Params      map[string]string `json:"template_params"`
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}

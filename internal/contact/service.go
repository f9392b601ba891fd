package contact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/observability"
)

// Receipt acknowledges a delivered submission.
type Receipt struct {
	ID          string
	SubmittedAt time.Time
}

// Service validates submissions, hands them to the relay and announces delivered leads.
type Service struct {
	relay     Relay
	publisher Publisher
	logger    *zap.Logger
	clock     func() time.Time
	entropy   io.Reader
	meter     metric.Meter
	submitted metric.Int64Counter
}

// Submission outcomes recorded on the contact.submissions counter.
const (
	OutcomeDelivered = "delivered"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithPublisher announces delivered leads on p.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) ServiceOption {
	return func(s *Service) { s.meter = m }
}

// NewService wires the submission flow around relay.
func NewService(relay Relay, opts ...ServiceOption) *Service {
	s := &Service{
		relay:   relay,
		logger:  zap.NewNop(),
		clock:   time.Now,
		entropy: ulid.DefaultEntropy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("contact")
	if s.meter == nil {
		s.meter = otel.GetMeterProvider().Meter("github.com/villa-azur/web/contact")
	}
	submitted, err := s.meter.Int64Counter(
		"contact.submissions",
		metric.WithDescription("Count of contact form submissions by outcome"),
	)
	if err != nil {
		s.logger.Warn("contact: unable to register submissions metric", zap.Error(err))
	} else {
		s.submitted = submitted
	}
	return s
}

// Submit normalizes and validates sub, then delivers it. Invalid input returns a
// *ValidationError without contacting the relay; relay failures wrap ErrDelivery and
// the *RelayError.
func (s *Service) Submit(ctx context.Context, sub Submission) (Receipt, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		s.count(ctx, sub.Source, OutcomeInvalid)
		return Receipt{}, err
	}

	logger := observability.FromContextOr(ctx, s.logger)
	if err := s.relay.Send(ctx, sub.message()); err != nil {
		fields := []zap.Field{zap.String("source", string(sub.Source)), zap.Error(err)}
		var rerr *RelayError
		if errors.As(err, &rerr) {
			fields = append(fields, zap.Int("relayStatus", rerr.Status), zap.String("relayText", rerr.Text))
		}
		logger.Error("contact relay failed", fields...)
		s.count(ctx, sub.Source, OutcomeFailed)
		return Receipt{}, fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.count(ctx, sub.Source, OutcomeDelivered)
	now := s.clock().UTC()
	receipt := Receipt{ID: s.newID(now), SubmittedAt: now}
	logger.Info("contact delivered",
		zap.String("leadId", receipt.ID),
		zap.String("source", string(sub.Source)),
		zap.String("email", observability.Redact(sub.Email)),
	)

	if s.publisher != nil {
		lead := Lead{
			ID:              receipt.ID,
			Source:          string(sub.Source),
			Locale:          sub.Locale,
			EmailDomain:     sub.EmailDomain(),
			CountryDialCode: sub.CountryCode,
			SubmittedAt:     now,
		}
		if _, err := s.publisher.PublishLead(ctx, lead); err != nil {
			logger.Warn("lead event not published", zap.String("leadId", receipt.ID), zap.Error(err))
		}
	}
	return receipt, nil
}

func (s *Service) newID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

func (s *Service) count(ctx context.Context, source Source, outcome string) {
	if s.submitted == nil {
		return
	}
	s.submitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", string(source)),
		attribute.String("outcome", outcome),
	))
}

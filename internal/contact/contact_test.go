package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/villa-azur/web/internal/config"
)

type recordingRelay struct {
	mu    sync.Mutex
	calls []Message
	err   error
}

func (r *recordingRelay) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, msg)
	return r.err
}

type recordingPublisher struct {
	leads []Lead
	err   error
}

func (p *recordingPublisher) PublishLead(_ context.Context, lead Lead) (string, error) {
	p.leads = append(p.leads, lead)
	return "msg-1", p.err
}

type outcomeMeter struct {
	noop.Meter
	counter *outcomeCounter
}

func (m *outcomeMeter) Int64Counter(string, ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	return m.counter, nil
}

type outcomeCounter struct {
	noop.Int64Counter
	mu       sync.Mutex
	outcomes []string
}

func (c *outcomeCounter) Add(_ context.Context, _ int64, opts ...metric.AddOption) {
	set := metric.NewAddConfig(opts).Attributes()
	outcome, _ := set.Value("outcome")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, outcome.AsString())
}

func validSubmission() Submission {
	return Submission{
		FirstName:   "Hélène",
		Name:        "Durand",
		Email:       "helene.durand@example.fr",
		CountryCode: "+33",
		Phone:       "06 12 34 56 78",
		Message:     "Nous aimerions réserver la villa en août.",
		Source:      SourceContactPage,
		Locale:      "fr",
	}
}

func TestValidateFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"one rune first name", func(s *Submission) { s.FirstName = "H" }, FieldFirstName},
		{"blank name", func(s *Submission) { s.Name = "   " }, FieldName},
		{"email without domain dot", func(s *Submission) { s.Email = "a@localhost" }, FieldEmail},
		{"email with display name", func(s *Submission) { s.Email = "Bob <bob@example.com>" }, FieldEmail},
		{"email garbage", func(s *Submission) { s.Email = "not-an-email" }, FieldEmail},
		{"unknown dial code", func(s *Submission) { s.CountryCode = "+999" }, FieldCountryCode},
		{"short phone", func(s *Submission) { s.Phone = "0612" }, FieldPhone},
		{"phone too long", func(s *Submission) { s.Phone = "+33 6 12 34 56 78 90 12 34 56 78 9" }, FieldPhone},
		{"phone with too few digits", func(s *Submission) { s.Phone = "ext 12" }, FieldPhone},
		{"phone with markup", func(s *Submission) { s.Phone = "<0612345678>" }, FieldPhone},
		{"short message", func(s *Submission) { s.Message = "Bonjour" }, FieldMessage},
		{"markup only message", func(s *Submission) { s.Message = "<b></b><i>hi</i>" }, FieldMessage},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sub := validSubmission()
			tt.mutate(&sub)
			err := sub.Normalize().Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tt.field}, verr.Fields())
		})
	}
}

func TestValidateAcceptsPhoneFormats(t *testing.T) {
	t.Parallel()
	for _, phone := range []string{
		"+33 6 12 34 56 78",
		"+44 7700 900123",
		"0612345678",
		"(030) 901820",
		"555-0100 ext 12",
		"+1 (212) 555.0100 x7",
	} {
		phone := phone
		t.Run(phone, func(t *testing.T) {
			t.Parallel()
			sub := validSubmission()
			sub.Phone = phone
			assert.NoError(t, sub.Normalize().Validate())
		})
	}
}

func TestNormalizeDefaultsAndSanitizes(t *testing.T) {
	t.Parallel()
	sub := validSubmission()
	sub.CountryCode = ""
	sub.Source = "bogus"
	sub.Message = "  <script>alert(1)</script>Arrivée le 3 & départ le 10  "
	got := sub.Normalize()
	assert.Equal(t, DefaultDialCode, got.CountryCode)
	assert.Equal(t, SourceContactPage, got.Source)
	assert.Equal(t, "Arrivée le 3 & départ le 10", got.Message)
	assert.NoError(t, got.Validate())
	assert.Equal(t, "example.fr", got.EmailDomain())
}

func TestSubmitShortNameMakesNoRelayCall(t *testing.T) {
	t.Parallel()
	relay := &recordingRelay{}
	svc := NewService(relay)
	sub := validSubmission()
	sub.Name = "D"

	_, err := svc.Submit(context.Background(), sub)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has(FieldName))
	assert.Empty(t, relay.calls)
}

func TestSubmitDeliversFixedParameterSet(t *testing.T) {
	t.Parallel()
	relay := &recordingRelay{}
	pub := &recordingPublisher{}
	now := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)
	svc := NewService(relay, WithPublisher(pub), WithClock(func() time.Time { return now }))

	sub := validSubmission()
	sub.Source = SourceVillaPage
	receipt, err := svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Len(t, receipt.ID, 26)
	assert.Equal(t, now, receipt.SubmittedAt)

	require.Len(t, relay.calls, 1)
	params := relay.calls[0].params()
	assert.Len(t, params, 7)
	assert.Equal(t, "villa-page", params["source"])
	assert.Equal(t, "+33", params["countryDialCode"])
	assert.Equal(t, "Hélène", params["firstName"])

	require.Len(t, pub.leads, 1)
	assert.Equal(t, receipt.ID, pub.leads[0].ID)
	assert.Equal(t, "example.fr", pub.leads[0].EmailDomain)
}

func TestSubmitPublisherFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	svc := NewService(&recordingRelay{}, WithPublisher(&recordingPublisher{err: errors.New("unavailable")}))
	_, err := svc.Submit(context.Background(), validSubmission())
	assert.NoError(t, err)
}

func TestSubmitNetworkErrorWrapsDelivery(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(config.RelayConfig{
		Endpoint:   srv.URL,
		ServiceID:  "svc",
		TemplateID: "tpl",
		PublicKey:  "pk",
		Timeout:    time.Second,
	}, nil)
	pub := &recordingPublisher{}
	_, err := NewService(client, WithPublisher(pub)).Submit(context.Background(), validSubmission())

	require.ErrorIs(t, err, ErrDelivery)
	var rerr *RelayError
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, rerr.Status)
	assert.Empty(t, pub.leads, "undelivered leads are not announced")
}

func TestSubmitCountsOutcomes(t *testing.T) {
	t.Parallel()
	relay := &recordingRelay{}
	meter := &outcomeMeter{counter: &outcomeCounter{}}
	svc := NewService(relay, WithMeter(meter))

	_, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)

	bad := validSubmission()
	bad.Email = "nope"
	_, err = svc.Submit(context.Background(), bad)
	require.Error(t, err)

	relay.err = errors.New("dial tcp: connection refused")
	_, err = svc.Submit(context.Background(), validSubmission())
	require.ErrorIs(t, err, ErrDelivery)

	assert.Equal(t, []string{OutcomeDelivered, OutcomeInvalid, OutcomeFailed}, meter.counter.outcomes)
}

func TestClientPostsEmailJSPayload(t *testing.T) {
	t.Parallel()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1.0/email/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	client := NewClient(config.RelayConfig{
		Endpoint: srv.URL + "/", ServiceID: "svc", TemplateID: "tpl", PublicKey: "pk", AccessToken: "tok",
	}, nil)
	require.False(t, client.Fake())
	require.NoError(t, client.Send(context.Background(), validSubmission().message()))

	assert.Equal(t, "svc", got["service_id"])
	assert.Equal(t, "tpl", got["template_id"])
	assert.Equal(t, "pk", got["user_id"])
	assert.Equal(t, "tok", got["accessToken"])
	params, ok := got["template_params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "contact-page", params["source"])
}

func TestClientRejectionCarriesStatusAndText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "The template ID is invalid", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(config.RelayConfig{Endpoint: srv.URL, ServiceID: "svc", TemplateID: "x", PublicKey: "pk"}, nil)
	err := client.Send(context.Background(), validSubmission().message())
	var rerr *RelayError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusBadRequest, rerr.Status)
	assert.Equal(t, "The template ID is invalid", rerr.Text)
	assert.True(t, strings.Contains(rerr.Error(), "400"))
}

func TestFakeClientNeverDials(t *testing.T) {
	t.Parallel()
	client := NewClient(config.RelayConfig{Endpoint: "http://127.0.0.1:1"}, nil)
	assert.True(t, client.Fake())
	assert.NoError(t, client.Send(context.Background(), validSubmission().message()))
}

func TestCountriesLocalizedAndSelected(t *testing.T) {
	t.Parallel()
	fr := Countries("fr", "")
	require.Len(t, fr, len(countries))
	var selected []string
	for _, c := range fr {
		if c.Selected {
			selected = append(selected, c.Region)
		}
		if c.Region == "DE" {
			assert.Equal(t, "Allemagne", c.Name)
		}
	}
	assert.Equal(t, []string{"FR"}, selected)
	assert.Equal(t, "Afrique du Sud", fr[0].Name)

	// +7 is shared; only the first holder is selected.
	selected = selected[:0]
	for _, c := range Countries("en", "+7") {
		if c.Selected {
			selected = append(selected, c.Region)
		}
	}
	assert.Len(t, selected, 1)

	assert.True(t, KnownDialCode("+377"))
	assert.False(t, KnownDialCode("33"))
}

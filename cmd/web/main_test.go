package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villa-azur/web/internal/config"
	"github.com/villa-azur/web/internal/contact"
	"github.com/villa-azur/web/internal/gallery"
)

type stubRelay struct {
	mu   sync.Mutex
	sent []contact.Message
	err  error
}

func (r *stubRelay) Send(_ context.Context, msg contact.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *stubRelay) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *stubRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

// stubScheduler holds autoplay callbacks until the test fires them.
type stubScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *stubScheduler) schedule(_ time.Duration, f func()) gallery.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, f)
	return stubTimer{}
}

func (s *stubScheduler) fire(t *testing.T) {
	t.Helper()
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		t.Fatal("no autoplay tick scheduled")
	}
	f := s.pending[len(s.pending)-1]
	s.pending = s.pending[:len(s.pending)-1]
	s.mu.Unlock()
	f()
}

type harness struct {
	t      *testing.T
	cfg    config.Config
	app    *server
	srv    *httptest.Server
	client *http.Client
	relay  *stubRelay
	ticks  *stubScheduler
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: "0"},
		Site: config.SiteConfig{
			BaseURL:       "https://villa.example",
			DefaultLocale: "fr",
			Locales:       []string{"fr", "en", "el", "ru", "it"},
		},
		Paths: config.PathsConfig{
			Templates: "../../templates",
			Public:    "../../public",
			Locales:   "../../locales",
			Content:   "../../content",
		},
		Session:    config.SessionConfig{Secret: strings.Repeat("k", 32)},
		RateLimits: config.RateLimitConfig{ContactPerMinute: 100},
		Gallery:    config.GalleryConfig{AutoplayInterval: 5 * time.Second},
	}
}

// newHarness serves the full router over a real listener so cookies, redirects and
// streaming behave as they do in a browser.
func newHarness(t *testing.T, tweak ...func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	for _, fn := range tweak {
		fn(&cfg)
	}
	relay := &stubRelay{}
	ticks := &stubScheduler{}
	app, err := newServer(cfg, nil,
		withRelay(relay),
		withAutoplayOptions(gallery.WithScheduler(ticks.schedule)),
	)
	require.NoError(t, err)

	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)
	t.Cleanup(app.closeStreams)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{t: t, cfg: cfg, app: app, srv: srv, client: client, relay: relay, ticks: ticks}
}

func (h *harness) request(method, path string, body io.Reader, header http.Header) *http.Response {
	h.t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(h.t, err)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	return resp
}

func (h *harness) get(path string) *http.Response {
	return h.request(http.MethodGet, path, nil, nil)
}

func (h *harness) hxGet(path string) *http.Response {
	return h.request(http.MethodGet, path, nil, http.Header{"Hx-Request": {"true"}})
}

// csrfToken loads a page to start a session and returns the form token.
func (h *harness) csrfToken(lang string) string {
	h.t.Helper()
	resp := h.get("/" + lang + "/contact")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(h.t, resp)
	token, ok := doc.Find(`input[name="csrf_token"]`).First().Attr("value")
	require.True(h.t, ok, "form carries no CSRF token")
	require.NotEmpty(h.t, token)
	return token
}

func (h *harness) postForm(path string, form url.Values, hx bool) *http.Response {
	header := http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
	if hx {
		header.Set("HX-Request", "true")
	}
	return h.request(http.MethodPost, path, strings.NewReader(form.Encode()), header)
}

func (h *harness) postJSON(path, token string, body string) *http.Response {
	header := http.Header{"Content-Type": {"application/json"}}
	if token != "" {
		header.Set("X-CSRF-Token", token)
	}
	return h.request(http.MethodPost, path, strings.NewReader(body), header)
}

func parseDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func validForm(token string, source contact.Source) url.Values {
	return url.Values{
		"csrf_token":  {token},
		"source":      {string(source)},
		"firstName":   {"Elena"},
		"name":        {"Papadopoulou"},
		"email":       {"elena@example.gr"},
		"countryCode": {"+30"},
		"phone":       {"690 123 4567"},
		"message":     {"We would like to stay for two weeks in July."},
	}
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeJSON(t, resp)["status"])
}

func TestRootRedirectsToPreferredLocale(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		header http.Header
		cookie *http.Cookie
		want   string
	}{
		{name: "no preference", want: "/fr"},
		{name: "accept-language", header: http.Header{"Accept-Language": {"en-GB,en;q=0.9"}}, want: "/en"},
		{name: "unsupported language", header: http.Header{"Accept-Language": {"de-DE"}}, want: "/fr"},
		{name: "cookie wins", header: http.Header{"Accept-Language": {"en"}}, cookie: &http.Cookie{Name: "hl", Value: "el"}, want: "/el"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/", nil)
			require.NoError(t, err)
			for k, v := range tt.header {
				req.Header[k] = v
			}
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			client := &http.Client{CheckRedirect: h.client.CheckRedirect}
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
			assert.Equal(t, tt.want, resp.Header.Get("Location"))
		})
	}
}

func TestUnprefixedPathKeepsRemainder(t *testing.T) {
	h := newHarness(t)
	resp := h.request(http.MethodGet, "/galerie?cat=pool", nil, http.Header{"Accept-Language": {"it"}})
	resp.Body.Close()
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/it/galerie?cat=pool", resp.Header.Get("Location"))
}

func TestUnknownLocaleIsNotFound(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Site.Locales = []string{"fr", "en", "pt"} })
	for _, path := range []string{"/de", "/de/villa", "/pt/galerie", "/el/villa"} {
		resp := h.get(path)
		doc := parseDoc(t, resp)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "404", strings.TrimSpace(doc.Find(".status__code").Text()), path)
		assert.Equal(t, "noindex", doc.Find(`meta[name="robots"]`).AttrOr("content", ""), path)
	}
}

func TestHomePage(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/fr")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fr", resp.Header.Get("Content-Language"))
	doc := parseDoc(t, resp)

	assert.Equal(t, "fr", doc.Find("html").AttrOr("lang", ""))
	assert.Contains(t, doc.Find("title").Text(), "|")
	assert.GreaterOrEqual(t, doc.Find(`link[rel="alternate"][hreflang]`).Length(), 5)
	assert.Equal(t, "https://villa.example/fr", doc.Find(`link[rel="canonical"]`).AttrOr("href", ""))

	var types []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v map[string]any
		if assert.NoError(t, json.Unmarshal([]byte(s.Text()), &v)) {
			if typ, ok := v["@type"].(string); ok {
				types = append(types, typ)
			}
		}
	})
	assert.Contains(t, types, "LodgingBusiness")

	langs := doc.Find(".lang-switch a")
	assert.Equal(t, 5, langs.Length())
	assert.Equal(t, "fr", langs.Filter(".is-active").AttrOr("hreflang", ""))
}

func TestEveryLocaleServesEveryPage(t *testing.T) {
	h := newHarness(t)
	for _, lang := range []string{"fr", "en", "el", "ru", "it"} {
		for _, page := range []string{"", "/villa", "/galerie", "/decouvrir", "/contact", "/terms", "/sales-terms"} {
			resp := h.get("/" + lang + page)
			resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode, "/"+lang+page)
		}
	}
}

func TestVillaPage(t *testing.T) {
	h := newHarness(t)
	doc := parseDoc(t, h.get("/en/villa"))
	assert.Equal(t, 1, doc.Find("#villa-carousel").Length())
	assert.Equal(t, 1, doc.Find("form#contact-form-villa-page").Length())
	assert.Equal(t, "villa-page", doc.Find(`form#contact-form-villa-page input[name="source"]`).AttrOr("value", ""))
}

func TestVillaCarouselFragment(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/en/villa/carousel?i=2")
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/en/villa?i=2", resp.Header.Get("Location"))

	resp = h.hxGet("/en/villa/carousel?i=5&key=ArrowRight")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)
	assert.Equal(t, 1, doc.Find("#villa-carousel").Length())
	assert.Equal(t, 0, doc.Find(".site-header").Length())
}

func TestDiscoverPages(t *testing.T) {
	h := newHarness(t)

	doc := parseDoc(t, h.get("/en/decouvrir"))
	assert.Equal(t, 6, doc.Find(".destination-card").Length())

	resp := h.get("/en/decouvrir/monaco")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = parseDoc(t, resp)
	assert.Equal(t, "Monaco", strings.TrimSpace(doc.Find("h1").First().Text()))

	resp = h.get("/en/decouvrir/atlantis")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLegalPages(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/en/terms", "/fr/sales-terms", "/it/terms"} {
		resp := h.get(path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		doc := parseDoc(t, resp)
		assert.NotEmpty(t, strings.TrimSpace(doc.Find("h1").First().Text()), path)
	}
}

func TestStaticAssets(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/static/css/site.css")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), ".lightbox")
}

func TestGalleryPage(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/en/galerie")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)

	assert.Equal(t, 5, doc.Find("#gallery-tabs a").Length())
	assert.Equal(t, "all", doc.Find("#gallery-tabs a.is-active").AttrOr("data-category", ""))
	assert.Equal(t, "01 / 16", strings.TrimSpace(doc.Find(".gallery__counter").First().Text()))
	assert.Equal(t, 16, doc.Find("#gallery-track li").Length())
	assert.False(t, doc.Find("#lightbox").HasClass("is-open"))
	assert.NotContains(t, doc.Find(`meta[name="robots"]`).AttrOr("content", ""), "noindex")

	doc = parseDoc(t, h.get("/en/galerie?cat=pool&i=1"))
	assert.Equal(t, "02 / 04", strings.TrimSpace(doc.Find(".gallery__counter").First().Text()))
	assert.Equal(t, "noindex,follow", doc.Find(`meta[name="robots"]`).AttrOr("content", ""))
}

func TestGalleryViewFragment(t *testing.T) {
	h := newHarness(t)

	counter := func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find("#gallery-stage .gallery__counter").First().Text())
	}

	t.Run("category resets index", func(t *testing.T) {
		resp := h.hxGet("/en/galerie/view?cat=pool&i=3")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/en/galerie?cat=pool&i=3", resp.Header.Get("HX-Push-Url"))
		doc := parseDoc(t, resp)
		assert.Equal(t, 0, doc.Find(".site-header").Length())
		assert.Equal(t, "04 / 04", counter(doc))

		href, ok := doc.Find(`#gallery-tabs a[data-category="garden"]`).Attr("hx-get")
		require.True(t, ok)
		doc = parseDoc(t, h.hxGet(href))
		assert.Equal(t, "01 / 03", counter(doc))
		assert.Equal(t, 3, doc.Find("#gallery-track li").Length())
	})

	t.Run("next wraps", func(t *testing.T) {
		doc := parseDoc(t, h.hxGet("/en/galerie/view?cat=pool&i=3"))
		href, ok := doc.Find(".gallery__next").Attr("hx-get")
		require.True(t, ok)
		doc = parseDoc(t, h.hxGet(href))
		assert.Equal(t, "01 / 04", counter(doc))

		href, ok = doc.Find(".gallery__prev").Attr("hx-get")
		require.True(t, ok)
		doc = parseDoc(t, h.hxGet(href))
		assert.Equal(t, "04 / 04", counter(doc))
	})

	t.Run("lightbox keys", func(t *testing.T) {
		doc := parseDoc(t, h.hxGet("/en/galerie/view?cat=pool&i=3&lb=1"))
		assert.True(t, doc.Find("#lightbox").HasClass("is-open"))
		assert.True(t, doc.Find("#gallery").HasClass("is-locked"))

		doc = parseDoc(t, h.hxGet("/en/galerie/view?cat=pool&i=3&lb=1&key=ArrowRight"))
		assert.True(t, doc.Find("#lightbox").HasClass("is-open"))
		assert.Equal(t, "01 / 04", strings.TrimSpace(doc.Find(".lightbox__counter").Text()))

		doc = parseDoc(t, h.hxGet("/en/galerie/view?cat=pool&i=1&lb=1&key=Escape"))
		assert.False(t, doc.Find("#lightbox").HasClass("is-open"))
		assert.False(t, doc.Find("#gallery").HasClass("is-locked"))
		assert.Equal(t, "02 / 04", counter(doc))
	})

	t.Run("keys ignored while closed", func(t *testing.T) {
		doc := parseDoc(t, h.hxGet("/en/galerie/view?cat=pool&i=1&key=ArrowRight"))
		assert.Equal(t, "02 / 04", counter(doc))
	})

	t.Run("clicks", func(t *testing.T) {
		doc := parseDoc(t, h.hxGet("/en/galerie/view?i=2&lb=1&click=media"))
		assert.True(t, doc.Find("#lightbox").HasClass("is-open"))

		doc = parseDoc(t, h.hxGet("/en/galerie/view?i=2&lb=1&click=backdrop"))
		assert.False(t, doc.Find("#lightbox").HasClass("is-open"))
		assert.Equal(t, "03 / 16", counter(doc))
	})

	t.Run("empty category", func(t *testing.T) {
		doc := parseDoc(t, h.hxGet("/en/galerie/view?cat=cellar"))
		assert.Equal(t, 1, doc.Find(".gallery__empty").Length())
		assert.Equal(t, "00 / 00", counter(doc))
	})
}

func TestGalleryViewWithoutHTMXRedirects(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/en/galerie/view?cat=pool&i=9")
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/en/galerie?cat=pool", resp.Header.Get("Location"))
}

func TestGalleryMobileLayout(t *testing.T) {
	h := newHarness(t)
	doc := parseDoc(t, h.get("/en/galerie?view=mobile"))
	assert.True(t, doc.Find("#gallery").HasClass("gallery--mobile"))
	assert.Equal(t, 1, doc.Find(".gallery__menu-toggle").Length())
	assert.True(t, doc.Find("#gallery-tabs").HasClass("is-collapsed"))
	assert.Equal(t, 0, doc.Find(".gallery__autoplay").Length())

	// The layout cookie sticks for the following fragment requests.
	doc = parseDoc(t, h.hxGet("/en/galerie/view?menu=1"))
	assert.False(t, doc.Find("#gallery-tabs").HasClass("is-collapsed"))

	resp := h.get("/en/galerie/autoplay?play=1")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestGalleryAutoplayStream(t *testing.T) {
	h := newHarness(t)

	resp := h.get("/en/galerie/autoplay?cat=pool")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() (string, string) {
		var event string
		var data strings.Builder
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				return event, data.String()
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data.WriteString(strings.TrimPrefix(line, "data: "))
				data.WriteByte('\n')
			}
		}
	}

	h.ticks.fire(t)
	event, data := readEvent()
	assert.Equal(t, "slide", event)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "02 / 04", strings.TrimSpace(doc.Find(".gallery__counter").First().Text()))
	assert.Equal(t, "slide", doc.Find("#gallery-stage").AttrOr("sse-swap", ""))

	h.ticks.fire(t)
	_, data = readEvent()
	assert.Contains(t, data, "03 / 04")
}

func TestGalleryAutoplayRefusedInLightbox(t *testing.T) {
	h := newHarness(t)
	resp := h.get("/en/galerie/autoplay?i=1&lb=1")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestContactFormRequiresCSRF(t *testing.T) {
	h := newHarness(t)
	h.csrfToken("en")
	form := validForm("", contact.SourceContactPage)
	form.Del("csrf_token")
	resp := h.postForm("/en/contact", form, true)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, h.relay.count())
}

func TestContactFormValidation(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")

	form := validForm(token, contact.SourceContactPage)
	form.Set("name", "X")
	form.Set("email", "elena@")
	resp := h.postForm("/en/contact", form, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := parseDoc(t, resp)

	assert.Zero(t, h.relay.count())
	assert.Equal(t, 1, doc.Find(`.form__error[data-field="name"]`).Length())
	assert.Equal(t, 1, doc.Find(`.form__error[data-field="email"]`).Length())
	assert.Equal(t, 0, doc.Find(`.form__error[data-field="firstName"]`).Length())
	assert.Equal(t, "Elena", doc.Find(`input[name="firstName"]`).AttrOr("value", ""))
	assert.Equal(t, 0, doc.Find(".form__notice--success").Length())
}

func TestContactFormRelayFailure(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")
	h.relay.fail(&contact.RelayError{Status: http.StatusServiceUnavailable, Text: "busy"})

	resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc := parseDoc(t, resp)

	assert.Contains(t, doc.Find(".form__notice--error").Text(), "Sending failed")
	assert.Equal(t, "elena@example.gr", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	assert.Contains(t, doc.Find(`textarea[name="message"]`).Text(), "two weeks")
}

func TestContactFormTransportFailureKeepsValues(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")
	h.relay.fail(errors.New("dial tcp 10.0.0.1:443: connect: connection refused"))

	resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc := parseDoc(t, resp)
	assert.Contains(t, doc.Find(".form__notice--error").Text(), "Sending failed")
	assert.Equal(t, "elena@example.gr", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	assert.Equal(t, "690 123 4567", doc.Find(`input[name="phone"]`).AttrOr("value", ""))
	assert.Contains(t, doc.Find(`textarea[name="message"]`).Text(), "two weeks")

	resp = h.postForm("/en/contact", validForm(token, contact.SourceContactPage), false)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	doc = parseDoc(t, resp)
	assert.Equal(t, 1, doc.Find(".site-header").Length())
	assert.Contains(t, doc.Find(".form__notice--error").Text(), "Sending failed")
	assert.Equal(t, "Elena", doc.Find(`input[name="firstName"]`).AttrOr("value", ""))
	assert.Equal(t, 0, h.relay.count())
}

// The oversized post is served in-process: a real listener may reset the connection
// before the client finishes writing two megabytes.
func TestContactFormRejectsOversizedBody(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")
	base, err := url.Parse(h.srv.URL)
	require.NoError(t, err)

	form := validForm(token, contact.SourceContactPage)
	form.Set("padding", strings.Repeat("x", 2<<20))
	req := httptest.NewRequest(http.MethodPost, "/en/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range h.client.Jar.Cookies(base) {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.srv.Config.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, h.relay.count())

	resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 1, h.relay.count())
}

func TestContactFormSuccess(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")

	resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)

	require.Equal(t, 1, h.relay.count())
	msg := h.relay.sent[0]
	assert.Equal(t, "Elena", msg.FirstName)
	assert.Equal(t, "+30", msg.CountryDialCode)
	assert.Equal(t, string(contact.SourceContactPage), msg.Source)

	notice := doc.Find(".form__notice--success")
	require.Equal(t, 1, notice.Length())
	assert.NotEmpty(t, strings.TrimSpace(strings.TrimPrefix(notice.Find(".form__reference").Text(), "Reference:")))
	assert.Equal(t, "", doc.Find(`input[name="firstName"]`).AttrOr("value", ""))
}

func TestVillaFormWithoutHTMXRendersVillaPage(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("fr")

	resp := h.postForm("/fr/contact", validForm(token, contact.SourceVillaPage), false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)
	assert.Equal(t, 1, doc.Find("#villa-carousel").Length())
	assert.Equal(t, 1, doc.Find("form#contact-form-villa-page .form__notice--success").Length())
	assert.Equal(t, "villa-page", h.relay.sent[0].Source)
}

func TestContactAPI(t *testing.T) {
	h := newHarness(t)
	token := h.csrfToken("en")
	valid := `{"firstName":"Marco","name":"Rossi","email":"marco@example.it","countryCode":"+39","phone":"333 123 4567","message":"Is the villa free in early September?","source":"contact-page","locale":"it"}`

	resp := h.postJSON("/api/contact", "", valid)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.postJSON("/api/contact", token, valid)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeJSON(t, resp)
	assert.Len(t, body["id"], 26)
	assert.NotEmpty(t, body["submitted_at"])

	resp = h.postJSON("/api/contact", token, `{"firstName":"M","name":"Rossi","email":"marco@example.it","countryCode":"+39","phone":"333 123 4567","message":"short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body = decodeJSON(t, resp)
	assert.Equal(t, "invalid_submission", body["error"])
	fields, ok := body["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "firstName")
	assert.Contains(t, fields, "message")
	assert.NotContains(t, fields, "email")

	resp = h.postJSON("/api/contact", token, `{"firstName":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_json", decodeJSON(t, resp)["error"])

	resp = h.postJSON("/api/contact", token, `{"firstName":"Marco","admin":true}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h.relay.fail(errors.New("connection refused"))
	resp = h.postJSON("/api/contact", token, valid)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "delivery_failed", decodeJSON(t, resp)["error"])
	assert.Equal(t, 1, h.relay.count())
}

func TestContactRateLimit(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.RateLimits.ContactPerMinute = 2 })
	token := h.csrfToken("en")

	for i := 0; i < 2; i++ {
		resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := h.postForm("/en/contact", validForm(token, contact.SourceContactPage), true)
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	assert.Equal(t, 2, h.relay.count())

	resp = h.postJSON("/api/contact", token, `{}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate_limited", decodeJSON(t, resp)["error"])
}

func TestSwitchLanguage(t *testing.T) {
	h := newHarness(t)

	q := url.Values{"path": {"/fr/galerie?cat=pool"}}
	resp := h.get("/fr/lang/en?" + q.Encode())
	resp.Body.Close()
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/en/galerie?cat=pool", resp.Header.Get("Location"))

	var remembered string
	for _, c := range resp.Cookies() {
		if c.Name == "hl" {
			remembered = c.Value
		}
	}
	assert.Equal(t, "en", remembered)

	// The remembered choice now drives the root redirect.
	resp = h.request(http.MethodGet, "/", nil, http.Header{"Accept-Language": {"ru"}})
	resp.Body.Close()
	assert.Equal(t, "/en", resp.Header.Get("Location"))

	for _, external := range []string{"//evil.example/x", "https://evil.example/", "galerie"} {
		q := url.Values{"path": {external}}
		resp := h.get("/fr/lang/el?" + q.Encode())
		resp.Body.Close()
		assert.Equal(t, "/el", resp.Header.Get("Location"), external)
	}

	resp = h.get("/fr/lang/xx")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLintShippedContent(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, lint(context.Background(), &out, testConfig()))
	assert.True(t, strings.HasSuffix(out.String(), "ok\n"), out.String())
}

package contact

import (
	"html"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/publicsuffix"
)

// Source tags which form on the site produced a submission.
type Source string

const (
	SourceContactPage Source = "contact-page"
	SourceVillaPage   Source = "villa-page"
)

// ParseSource maps a posted source tag to a known form, defaulting to the contact page.
func ParseSource(v string) Source {
	if Source(strings.TrimSpace(v)) == SourceVillaPage {
		return SourceVillaPage
	}
	return SourceContactPage
}

// Field names as posted by the forms and reported in validation errors.
const (
	FieldFirstName   = "firstName"
	FieldName        = "name"
	FieldEmail       = "email"
	FieldCountryCode = "countryCode"
	FieldPhone       = "phone"
	FieldMessage     = "message"
)

const (
	minNameLen    = 2
	minDialLen    = 2
	minPhoneLen   = 5
	maxPhoneLen   = 32
	minMessageLen = 10
	maxFieldLen   = 200
	maxMessageLen = 5000
)

var messagePolicy = bluemonday.StrictPolicy()

// Submission is what a visitor typed into one of the lead forms.
type Submission struct {
	FirstName   string `json:"firstName"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	CountryCode string `json:"countryCode"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	Source      Source `json:"source"`
	Locale      string `json:"locale,omitempty"`
}

// Normalize trims every field, strips markup from the message and applies defaults.
func (s Submission) Normalize() Submission {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.CountryCode = strings.TrimSpace(s.CountryCode)
	if s.CountryCode == "" {
		s.CountryCode = DefaultDialCode
	}
	s.Phone = strings.TrimSpace(s.Phone)
	s.Message = strings.TrimSpace(html.UnescapeString(messagePolicy.Sanitize(s.Message)))
	s.Source = ParseSource(string(s.Source))
	return s
}

// Validate checks a normalized submission and returns a *ValidationError listing every
// failing field, or nil.
func (s Submission) Validate() error {
	verr := &ValidationError{}
	if !between(s.FirstName, minNameLen, maxFieldLen) {
		verr.add(FieldFirstName)
	}
	if !between(s.Name, minNameLen, maxFieldLen) {
		verr.add(FieldName)
	}
	if !validEmail(s.Email) {
		verr.add(FieldEmail)
	}
	if utf8.RuneCountInString(s.CountryCode) < minDialLen || !KnownDialCode(s.CountryCode) {
		verr.add(FieldCountryCode)
	}
	if !validPhone(s.Phone) {
		verr.add(FieldPhone)
	}
	if !between(s.Message, minMessageLen, maxMessageLen) {
		verr.add(FieldMessage)
	}
	if len(verr.fields) > 0 {
		return verr
	}
	return nil
}

func between(v string, min, max int) bool {
	n := utf8.RuneCountInString(v)
	return n >= min && n <= max
}

// validEmail accepts a bare address whose domain has a registrable suffix.
func validEmail(v string) bool {
	if v == "" || utf8.RuneCountInString(v) > maxFieldLen {
		return false
	}
	addr, err := mail.ParseAddress(v)
	if err != nil || addr.Address != v {
		return false
	}
	_, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	_, err = publicsuffix.EffectiveTLDPlusOne(strings.ToLower(domain))
	return err == nil
}

// validPhone accepts international and extension notation such as
// "+33 6 12 34 56 78" or "555-0100 ext 12".
func validPhone(v string) bool {
	if !between(v, minPhoneLen, maxPhoneLen) {
		return false
	}
	digits := 0
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
		case strings.ContainsRune(" +-.()/#", r):
		default:
			return false
		}
	}
	return digits >= minPhoneLen
}

// EmailDomain returns the lowercased domain part of the address.
func (s Submission) EmailDomain() string {
	_, domain, _ := strings.Cut(s.Email, "@")
	return strings.ToLower(domain)
}

// message turns a submission into the relay's fixed parameter set.
func (s Submission) message() Message {
	return Message{
		Name:            s.Name,
		FirstName:       s.FirstName,
		Email:           s.Email,
		CountryDialCode: s.CountryCode,
		Phone:           s.Phone,
		Message:         s.Message,
		Source:          string(s.Source),
	}
}

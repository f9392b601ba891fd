package handlers

import (
	"errors"

	"github.com/villa-azur/web/internal/contact"
)

// ContactForm is the view model of a lead form in any of its states.
type ContactForm struct {
	Lang      string
	Action    string
	Source    contact.Source
	CSRFToken string
	Values    contact.Submission
	// Errors maps invalid field names to i18n message keys.
	Errors    map[string]string
	Countries []contact.CountryOption
	Submitted bool
	Reference string
	Failed    bool
}

// NewContactForm returns an empty form for source.
func NewContactForm(lang string, source contact.Source, csrf string) *ContactForm {
	f := &ContactForm{
		Lang:      lang,
		Action:    "/" + lang + "/contact",
		Source:    source,
		CSRFToken: csrf,
		Values:    contact.Submission{CountryCode: contact.DefaultDialCode, Source: source},
		Errors:    map[string]string{},
	}
	f.Countries = contact.Countries(lang, f.Values.CountryCode)
	return f
}

// Result updates the form after a submission attempt. Values are kept unless the
// submission was delivered.
func (f *ContactForm) Result(sub contact.Submission, receipt contact.Receipt, err error) {
	var verr *contact.ValidationError
	switch {
	case err == nil:
		f.Submitted = true
		f.Reference = receipt.ID
		f.Values = contact.Submission{CountryCode: contact.DefaultDialCode, Source: f.Source}
	case errors.As(err, &verr):
		f.Values = sub
		for _, field := range verr.Fields() {
			f.Errors[field] = contact.MessageKey(field)
		}
	default:
		f.Values = sub
		f.Failed = true
	}
	f.Countries = contact.Countries(f.Lang, f.Values.CountryCode)
}

// Error returns the message key for field, or "".
func (f *ContactForm) Error(field string) string { return f.Errors[field] }

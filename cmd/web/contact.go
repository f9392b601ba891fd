package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/villa-azur/web/internal/contact"
	handlersPkg "github.com/villa-azur/web/internal/handlers"
	"github.com/villa-azur/web/internal/httpx"
	mw "github.com/villa-azur/web/internal/middleware"
)

const maxContactBody = 64 << 10

func (s *server) contactPage(w http.ResponseWriter, r *http.Request) {
	lang := s.lang(r)
	data := s.page(r, s.bundle.T(lang, "contact.title"), s.bundle.T(lang, "contact.description"), "")
	data.Form = handlersPkg.NewContactForm(lang, contact.SourceContactPage, data.CSRFToken)
	s.renderPage(w, r, http.StatusOK, "contact", data)
}

func submissionFromForm(r *http.Request, lang string) contact.Submission {
	return contact.Submission{
		FirstName:   r.PostFormValue(contact.FieldFirstName),
		Name:        r.PostFormValue(contact.FieldName),
		Email:       r.PostFormValue(contact.FieldEmail),
		CountryCode: r.PostFormValue(contact.FieldCountryCode),
		Phone:       r.PostFormValue(contact.FieldPhone),
		Message:     r.PostFormValue(contact.FieldMessage),
		Source:      contact.ParseSource(r.PostFormValue("source")),
		Locale:      lang,
	}
}

func submitStatus(err error) int {
	var verr *contact.ValidationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// contactSubmit handles both lead forms. htmx posts get the form fragment back; plain
// posts get the whole page the form came from.
func (s *server) contactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.status(w, r, http.StatusBadRequest, "badrequest")
		return
	}
	lang := s.lang(r)
	sub := submissionFromForm(r, lang)
	receipt, err := s.contact.Submit(r.Context(), sub)
	if err == nil {
		if sess := mw.GetSession(r); sess.LastLeadID != receipt.ID {
			sess.LastLeadID = receipt.ID
			sess.MarkDirty()
		}
	}
	csrf := mw.CSRFToken(r)
	form := handlersPkg.NewContactForm(lang, sub.Source, csrf)
	form.Result(sub, receipt, err)
	code := submitStatus(err)

	if mw.IsHTMX(r.Context()) {
		s.renderTemplate(w, r, code, "frag_contact_form", handlersPkg.PageData{Lang: lang, CSRFToken: csrf, Form: form})
		return
	}

	if sub.Source == contact.SourceVillaPage {
		data := s.page(r, s.bundle.T(lang, "villa.title"), s.bundle.T(lang, "villa.description"), "")
		villa := handlersPkg.BuildVillaData(lang, s.villaState(r), form)
		data.Villa = &villa
		data.Form = form
		s.renderPage(w, r, code, "villa", data)
		return
	}
	data := s.page(r, s.bundle.T(lang, "contact.title"), s.bundle.T(lang, "contact.description"), "")
	data.Form = form
	s.renderPage(w, r, code, "contact", data)
}

type contactReceipt struct {
	ID          string    `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// contactAPI is the JSON flavour of the contact form.
func (s *server) contactAPI(w http.ResponseWriter, r *http.Request) {
	var sub contact.Submission
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sub); err != nil {
		writeAPIError(w, r, "invalid_json", "request body must be a JSON submission", http.StatusBadRequest, nil)
		return
	}
	if sub.Locale == "" || !s.bundle.Has(sub.Locale) {
		sub.Locale = s.lang(r)
	}

	receipt, err := s.contact.Submit(r.Context(), sub)
	var verr *contact.ValidationError
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusCreated, contactReceipt{ID: receipt.ID, SubmittedAt: receipt.SubmittedAt})
	case errors.As(err, &verr):
		fields := map[string]any{}
		for _, f := range verr.Fields() {
			fields[f] = s.bundle.T(sub.Locale, contact.MessageKey(f))
		}
		writeAPIError(w, r, "invalid_submission", "some fields are invalid", http.StatusUnprocessableEntity, map[string]any{"fields": fields})
	default:
		writeAPIError(w, r, "delivery_failed", s.bundle.T(sub.Locale, "contact.failed"), http.StatusBadGateway, nil)
	}
}

func writeAPIError(w http.ResponseWriter, r *http.Request, code, message string, status int, details map[string]any) {
	httpx.WriteError(r.Context(), w, httpx.NewError(code, message, status).WithDetails(details))
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/service"
	"github.com/kinternationals/estimator/internal/store"
	"github.com/kinternationals/estimator/web"
)

type baseViewData struct {
	CompanyName    string
	ErrorMessage   string
	SuccessMessage string
	FieldErrors    map[string]string
}

// base reads the flash messages carried in the query string after a redirect.
func (s *server) base(r *http.Request) baseViewData {
	return baseViewData{
		CompanyName:    s.companyName,
		ErrorMessage:   r.URL.Query().Get("error"),
		SuccessMessage: r.URL.Query().Get("success"),
	}
}

var templateFuncs = template.FuncMap{
	"inr": pricing.FormatINR,
	"ago": humanize.Time,
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	},
	"day": func(t time.Time) string { return t.Format("02 Jan 2006") },
	"nulldec": func(d decimal.NullDecimal) string {
		if !d.Valid {
			return ""
		}
		return d.Decimal.String()
	},
	"num": func(d decimal.Decimal) string {
		if d.IsZero() {
			return ""
		}
		return d.String()
	},
	"count":    func(n int) string { return humanize.Comma(int64(n)) },
	"statuses": func() []store.Status { return store.Statuses },
	"kinds":    func() []pricing.ItemKind { return pricing.Kinds },
	"add":      func(a, b int) int { return a + b },
	"list":     func(v ...string) []string { return v },
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.FS,
		"templates/layout.html",
		"templates/"+page,
	)
	if err != nil {
		log.Printf("parse template %s: %v", page, err)
		http.Error(w, "failed to parse template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Printf("render template %s: %v", page, err)
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode json response: %v", err)
	}
}

// wantsJSON reports whether the client posted or asked for JSON.
func wantsJSON(r *http.Request) bool {
	if ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && ct == "application/json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

var conflictMessages = []struct {
	err error
	msg string
}{
	{store.ErrDuplicateNumber, "Could not allocate an estimate number, please try again"},
	{store.ErrDuplicateSKU, "A product with this SKU already exists"},
	{store.ErrDuplicateSlug, "A category with this slug already exists"},
	{store.ErrDuplicateEmail, "A user with this email already exists"},
	{store.ErrCategoryInUse, "Cannot delete category with products"},
}

// classify maps an error to its HTTP status and the message safe to show a user.
func classify(err error) (int, string, map[string]string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, "Please correct the highlighted fields", ve.Fields
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found", nil
	case errors.Is(err, store.ErrConflict):
		for _, c := range conflictMessages {
			if errors.Is(err, c.err) {
				return http.StatusConflict, c.msg, nil
			}
		}
		return http.StatusConflict, "The record was changed by someone else", nil
	}
	return http.StatusInternalServerError, "Something went wrong", nil
}

// writeError answers a failed request as JSON, logging anything unexpected.
func writeError(w http.ResponseWriter, op string, err error) {
	status, msg, fields := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
	}
	writeJSON(w, status, errorResponse{Error: msg, Fields: fields})
}

// httpError answers a failed page request with a plain-text status.
func httpError(w http.ResponseWriter, op string, err error) {
	status, msg, _ := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
	}
	http.Error(w, msg, status)
}

// redirectWithError sends the user back to target with a flash message, for list-page actions such as delete.
func redirectWithError(w http.ResponseWriter, r *http.Request, target, op string, err error) {
	status, msg, _ := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
	}
	if status == http.StatusNotFound {
		http.Error(w, msg, status)
		return
	}
	redirectWithMessage(w, r, target, "error", msg)
}

func redirectWithMessage(w http.ResponseWriter, r *http.Request, target, key, msg string) {
	http.Redirect(w, r, target+"?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

func redirectWithSuccess(w http.ResponseWriter, r *http.Request, target, msg string) {
	redirectWithMessage(w, r, target, "success", msg)
}

// formFailure fills view data for re-rendering a form after err and returns the status to use.
// Unexpected errors are logged and reported with a generic message.
func formFailure(base *baseViewData, op string, err error) int {
	status, msg, fields := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
	}
	base.ErrorMessage = msg
	base.FieldErrors = fields
	return status
}

package http

import (
	"encoding/json"
	"html/template"
	"net/http"

	"kharcha/internal/core"
)

// ResponseBuilder builds responses that work for plain form posts and for
// HTMX requests: a redirect becomes HX-Redirect when the request came from
// HTMX, and triggers travel in the HX-Trigger header.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
	redirect   string
}

// NewResponse creates a builder with a 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerExpenseCreated signals the day the new expense belongs to.
func (b *ResponseBuilder) TriggerExpenseCreated(d core.Date) *ResponseBuilder {
	return b.Trigger("expense:created", map[string]string{"date": core.EncodeDate(d)})
}

func (b *ResponseBuilder) TriggerExpenseDeleted(id string) *ResponseBuilder {
	return b.Trigger("expense:deleted", map[string]string{"id": id})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

func (b *ResponseBuilder) TriggerNotification(kind NotificationType, message string) *ResponseBuilder {
	return b.Trigger("show-notification", map[string]string{"type": string(kind), "message": message})
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// BodyHTML sets an HTML body.
func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// RedirectTo makes the response a 303 to path (or HX-Redirect for HTMX).
func (b *ResponseBuilder) RedirectTo(path string) *ResponseBuilder {
	b.redirect = path
	return b
}

// Write sends the response. r may be nil when no redirect is set.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	b.WriteFor(w, nil)
}

// WriteFor sends the response for request r.
func (b *ResponseBuilder) WriteFor(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.redirect != "" {
		if r != nil && r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", b.redirect)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Location", b.redirect)
		w.WriteHeader(http.StatusSeeOther)
		return
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML error fragment; message is escaped.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

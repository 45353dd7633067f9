package http

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	applog "kharcha/internal/log"
)

// page is the data every template receives.
type page struct {
	Title  string
	Active string
	User   auth.Identity
	Error  string
	Notice string
	Data   any
}

// expenseTable is the argument of the "expense_table" template.
type expenseTable struct {
	Records []core.ExpenseRecord
	Return  string
}

var templateFuncs = template.FuncMap{
	"money":    func(m core.Money) string { return m.Display() },
	"ddmmyyyy": core.EncodeDate,
	"iso":      core.FormatISODate,
	"table": func(records []core.ExpenseRecord, ret string) expenseTable {
		return expenseTable{Records: records, Return: ret}
	},
}

// render executes a template into a buffer first so a failure can still
// produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	if u, ok := auth.IdentityFrom(r.Context()); ok && p.User.Email == "" {
		p.User = u
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, p); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Template execution failed", err, applog.OpRender,
				applog.LogFields{"template": name})
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// safeReturn accepts only local paths, so form fields cannot redirect
// off-site.
func safeReturn(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return u.RequestURI()
}

// withNotice appends a notice query parameter to a local path.
func withNotice(path, key, msg string) string {
	u, err := url.Parse(path)
	if err != nil {
		return path
	}
	q := u.Query()
	q.Set(key, msg)
	u.RawQuery = q.Encode()
	return u.RequestURI()
}

// queryOf returns the query of a local path, or nil.
func queryOf(path string) url.Values {
	u, err := url.Parse(path)
	if err != nil {
		return nil
	}
	return u.Query()
}

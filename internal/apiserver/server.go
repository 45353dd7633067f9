// Package apiserver serves the expense REST contract over a ledger.Store.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	"kharcha/internal/ledger/rest"
	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/middleware/trace"
)

const maxBodyBytes = 1 << 20

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the reference expense API.
type Server struct {
	http.Server
	store  ledger.Store
	ready  Pinger
	logger *applog.Logger
}

// NewServer configures the API routes. ready may be nil.
func NewServer(addr string, store ledger.Store, ready Pinger, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.Discard(applog.ComponentAPI)
	}
	logger = logger.WithComponent(applog.ComponentAPI)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:  store,
		ready:  ready,
		logger: logger,
	}

	mux.HandleFunc("GET /api/expense/{$}", s.handleRoot)
	mux.HandleFunc("GET /api/expense/getExpensesByEmail/{email}", s.handleByUser)
	mux.HandleFunc("GET /api/expense/getExpensesByDateAndEmail/{date}/{email}", s.handleByDay)
	mux.HandleFunc("GET /api/expense/getExpensesByMonthAndEmail/{month}/{year}/{email}", s.handleByMonth)
	mux.HandleFunc("POST /api/expense/addExpense", s.handleAdd)
	mux.HandleFunc("DELETE /api/expense/deleteExpense/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/user/addUser", s.handleAddUser)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	tracer := trace.NewMiddleware(clientIP, trace.WithLogger(logger), trace.WithRoute(routeOf))
	s.Handler = tracer.Middleware(mux)
	return s
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleByUser(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	batch, err := s.store.ListByUser(r.Context(), email)
	if err != nil {
		s.fail(w, r, "list by user", err)
		return
	}
	s.writeBatch(w, r, email, batch, false)
}

// handleByDay accepts the ISO date the client sends, or a day-first date.
func (s *Server) handleByDay(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("date")
	day, err := core.ParseISODate(raw)
	if err != nil {
		if day, err = core.DecodeDate(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	email := r.PathValue("email")
	batch, err := s.store.ListByDay(r.Context(), email, day)
	if err != nil {
		s.fail(w, r, "list by day", err)
		return
	}
	s.writeBatch(w, r, email, batch, true)
}

func (s *Server) handleByMonth(w http.ResponseWriter, r *http.Request) {
	month, errM := strconv.Atoi(r.PathValue("month"))
	year, errY := strconv.Atoi(r.PathValue("year"))
	if errM != nil || errY != nil || month < 1 || month > 12 || year < 1 {
		writeError(w, http.StatusBadRequest, "invalid month or year")
		return
	}
	email := r.PathValue("email")
	batch, err := s.store.ListByMonth(r.Context(), email, year, month)
	if err != nil {
		s.fail(w, r, "list by month", err)
		return
	}
	s.writeBatch(w, r, email, batch, true)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload rest.WireExpense
	if err := decodeBody(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, err := payload.NewExpense()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.store.Add(r.Context(), e)
	if err != nil {
		s.fail(w, r, "add expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, rest.EncodeExpense(e.Record(id)))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Expense deleted", "id": id})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var payload rest.WireUser
	if err := decodeBody(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	id := ledger.Identity{Name: payload.Name, Email: payload.Email, AuthProvider: payload.AuthProvider}
	if err := s.store.SyncUser(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrEmptyEmail) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.fail(w, r, "sync user", err)
		return
	}
	writeJSON(w, http.StatusOK, rest.EncodeUser(id))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// writeBatch answers with the records; empty day and month reads are 404,
// which clients read as "no expenses".
func (s *Server) writeBatch(w http.ResponseWriter, r *http.Request, email string, batch ledger.Batch, notFoundWhenEmpty bool) {
	if len(batch.Rejected) > 0 {
		for _, rej := range batch.Rejected {
			metrics.RecordRejected(rej.Reason())
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogRejected(r.Context(), email, batch.Rejected)
	}
	if notFoundWhenEmpty && len(batch.Records) == 0 {
		writeError(w, http.StatusNotFound, "No expenses found")
		return
	}
	writeJSON(w, http.StatusOK, rest.EncodeBatch(batch.Records))
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidDateFormat),
		errors.Is(err, core.ErrEmptyItemName), errors.Is(err, core.ErrEmptyEmail), errors.Is(err, core.ErrZeroDate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "API request failed", err, op, nil)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

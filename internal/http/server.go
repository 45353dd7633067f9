// Package http serves the expense tracker's web pages.
package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"kharcha/internal/auth"
	"kharcha/internal/core"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/middleware/ratelimit"
	"kharcha/internal/middleware/security"
	"kharcha/internal/middleware/trace"
	"kharcha/internal/views"
	appweb "kharcha/web"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the web server. Ready may be nil.
type Deps struct {
	Store    ledger.Store
	Identity auth.IdentityProvider
	Sessions *auth.SessionManager
	Ready    Pinger
	Logger   *applog.Logger

	GoogleClientID  string
	PostRateLimit   int // per client per minute
	BlockSuspicious bool
}

type Server struct {
	http.Server
	templates *template.Template
	store     ledger.Store
	views     *views.Service
	idp       auth.IdentityProvider
	sessions  *auth.SessionManager
	ready     Pinger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *applog.Logger

	googleClientID string
	now            func() time.Time
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil || deps.Identity == nil || deps.Sessions == nil {
		return nil, errors.New("web server needs a store, an identity provider and a session manager")
	}
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard(applog.ComponentHTTP)
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: deps.PostRateLimit,
		Burst:             min(deps.PostRateLimit, 10),
	})

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		templates:      t,
		store:          deps.Store,
		views:          views.NewService(deps.Store, logger),
		idp:            deps.Identity,
		sessions:       deps.Sessions,
		ready:          deps.Ready,
		limiter:        limiter,
		detector:       security.NewDetector(deps.BlockSuspicious, logger),
		logger:         logger,
		googleClientID: deps.GoogleClientID,
		now:            time.Now,
	}

	mux := http.NewServeMux()

	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(appweb.Static())))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("POST /login/google", s.handleGoogleLogin)
	mux.HandleFunc("POST /password-reset", s.handlePasswordReset)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /home", s.requireAuth(s.handleHome))
	mux.Handle("GET /daily", s.requireAuth(s.handleDaily))
	mux.Handle("GET /monthly", s.requireAuth(s.handleMonthly))
	mux.Handle("GET /all", s.requireAuth(s.handleAll))
	mux.Handle("GET /all/export.xlsx", s.requireAuth(s.handleExport))
	mux.Handle("POST /expenses", s.requireAuth(s.handleCreateExpense))
	mux.Handle("POST /expenses/{id}/delete", s.requireAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited, http.MethodPost)(h)
	h = s.detector.Middleware(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.NewMiddleware(s.detector.ExtractClientIP,
		trace.WithLogger(logger), trace.WithRoute(routeOf)).Middleware(h)
	s.Handler = h
	return s, nil
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// requireAuth resolves the session identity or redirects to the login page.
func (s *Server) requireAuth(next func(http.ResponseWriter, *http.Request, auth.Identity)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.sessions.FromRequest(r)
		if err != nil {
			if r.Method == http.MethodGet {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := auth.WithIdentity(r.Context(), id)
		ctx = applog.IntoContext(ctx, applog.FromContext(ctx).With(applog.FieldUserEmail, id.Email))
		next(w, r.WithContext(ctx), id)
	})
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	NewResponse().
		Status(http.StatusTooManyRequests).
		BodyHTML(`<div class="error">Too many requests. Please try again in a minute.</div>`).
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
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

func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

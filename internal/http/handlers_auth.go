package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kharcha/internal/auth"
	applog "kharcha/internal/log"
)

const gsiCSRFCookie = "g_csrf_token"

type loginData struct {
	Email          string
	GoogleClientID string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", page{
		Title:  "Sign in",
		Error:  r.URL.Query().Get("error"),
		Notice: r.URL.Query().Get("notice"),
		Data:   loginData{GoogleClientID: s.googleClientID},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	if email == "" || password == "" {
		s.renderLogin(w, r, http.StatusUnprocessableEntity, email, "Please enter your email and password.")
		return
	}

	id, err := s.idp.SignIn(r.Context(), email, password)
	if err != nil {
		s.logAuthFailure(r.Context(), "Sign-in failed", err)
		s.renderLogin(w, r, statusForAuthError(err), email, authMessage(err))
		return
	}
	s.startSession(w, r, id)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, email, msg string) {
	s.render(w, r, status, "login.html", page{
		Title: "Sign in",
		Error: msg,
		Data:  loginData{Email: email, GoogleClientID: s.googleClientID},
	})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", page{Title: "Create account", Data: loginData{}})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	confirm := r.FormValue("confirmPassword")

	fail := func(status int, msg string) {
		s.render(w, r, status, "register.html", page{
			Title: "Create account",
			Error: msg,
			Data:  loginData{Email: email},
		})
	}

	if err := auth.ValidateRegistration(email, password, confirm); err != nil {
		fail(http.StatusUnprocessableEntity, authMessage(err))
		return
	}
	id, err := s.idp.SignUp(r.Context(), email, password)
	if err != nil {
		s.logAuthFailure(r.Context(), "Sign-up failed", err)
		fail(statusForAuthError(err), authMessage(err))
		return
	}
	s.startSession(w, r, id)
}

// handleGoogleLogin receives the Google Identity Services redirect post. GIS
// sends the same random value as a cookie and a form field.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	if cookie, err := r.Cookie(gsiCSRFCookie); err == nil {
		if cookie.Value == "" || cookie.Value != r.PostFormValue(gsiCSRFCookie) {
			s.logger.WarnContext(r.Context(), "Google sign-in CSRF token mismatch")
			BadRequestError("Invalid sign-in request").Write(w)
			return
		}
	}

	id, err := s.idp.SignInWithIDP(r.Context(), auth.ProviderGoogle, r.PostFormValue("credential"))
	if err != nil {
		s.logAuthFailure(r.Context(), "Google sign-in failed", err)
		http.Redirect(w, r, withNotice("/login", "error", "Google sign-in failed. Please try again."), http.StatusSeeOther)
		return
	}
	s.startSession(w, r, id)
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	if email == "" {
		s.renderLogin(w, r, http.StatusUnprocessableEntity, "", "Enter your email to reset your password.")
		return
	}
	// Unknown addresses get the same notice as known ones.
	if err := s.idp.SendPasswordReset(r.Context(), email); err != nil {
		s.logAuthFailure(r.Context(), "Password reset failed", err)
	}
	http.Redirect(w, r, withNotice("/login", "notice",
		"If that address has an account, a reset link is on its way."), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	NewResponse().RedirectTo("/login").WriteFor(w, r)
}

// startSession syncs the user with the backend, sets the session cookie
// and sends the browser home. A sync failure does not block sign-in.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	ctx := r.Context()
	if err := s.store.SyncUser(ctx, id.Ledger()); err != nil {
		s.logger.WarnContext(ctx, "User sync failed",
			applog.FieldUserEmail, id.Email, applog.FieldError, err)
	}
	if err := s.sessions.SetCookie(w, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to issue session", applog.FieldError, err)
		InternalServerError("Could not start your session").Write(w)
		return
	}
	s.logger.InfoContext(ctx, "User signed in",
		applog.FieldUserEmail, id.Email, "provider", id.Provider)
	NewResponse().RedirectTo("/home").WriteFor(w, r)
}

func (s *Server) logAuthFailure(ctx context.Context, msg string, err error) {
	var pe *auth.ProviderError
	if errors.As(err, &pe) {
		s.logger.ErrorContext(ctx, msg, applog.FieldError, err)
		return
	}
	s.logger.InfoContext(ctx, msg, applog.FieldReason, err.Error())
}

func statusForAuthError(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, auth.ErrEmailExists):
		return "An account with this email already exists."
	case errors.Is(err, auth.ErrWeakPassword):
		return "Password must be at least 6 characters."
	case errors.Is(err, auth.ErrPasswordMismatch):
		return "Passwords do not match."
	case errors.Is(err, auth.ErrInvalidEmail):
		return "Please enter a valid email address."
	case errors.Is(err, auth.ErrTooManyAttempts):
		return "Too many attempts. Please try again later."
	default:
		return "Sign-in is unavailable right now. Please try again."
	}
}

package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"studycards/internal/logger"
	"studycards/internal/security"
	"studycards/internal/service"
	"studycards/internal/validation"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	middleware           *Middleware
	templates            *template.Template
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	stateSigner          *security.StateSigner
	log                  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, middleware *Middleware, templates *template.Template, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, stateSigner *security.StateSigner, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		middleware:           middleware,
		templates:            templates,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		stateSigner:          stateSigner,
		log:                  log.With("handler", "auth"),
	}
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	renderPage(h.log, h.templates, w, status, name, data)
}

func (h *AuthHandler) loggedIn(r *http.Request) bool {
	_, _, ok := h.middleware.currentUser(r)
	return ok
}

// Home renders the landing page, or sends a signed-in user to the dashboard
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if h.loggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "home.tmpl", PageData{Title: pageTitle("")})
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if h.loggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "login.tmpl", LoginViewData{
		PageData:       PageData{Title: pageTitle("Giriş Yap")},
		OAuthProviders: h.oauthProviderViews(),
	})
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	session, _, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.log.Error("login failed", "error", err)
		}
		h.render(w, http.StatusUnauthorized, "login.tmpl", LoginViewData{
			PageData:       PageData{Title: pageTitle("Giriş Yap")},
			OAuthProviders: h.oauthProviderViews(),
			Error:          ErrInvalidCredentials,
			Email:          email,
		})
		return
	}

	http.SetCookie(w, security.SessionCookie(r, security.SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// ShowSignup renders the registration page
func (h *AuthHandler) ShowSignup(w http.ResponseWriter, r *http.Request) {
	if h.loggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.render(w, http.StatusOK, "signup.tmpl", SignupViewData{
		PageData:       PageData{Title: pageTitle("Kayıt Ol")},
		OAuthProviders: h.oauthProviderViews(),
	})
}

// Signup handles registration form submission and signs the new user in
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")
	name := r.FormValue("name")

	if _, err := h.authService.Register(r.Context(), email, password, name); err != nil {
		var (
			message  = ErrInternalServerError
			status   = http.StatusInternalServerError
			fieldErr *validation.Error
		)
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			message, status = ErrEmailTaken, http.StatusConflict
		case errors.As(err, &fieldErr):
			message, status = fieldErr.Message, http.StatusBadRequest
		default:
			h.log.Error("registration failed", "error", err)
		}
		h.render(w, status, "signup.tmpl", SignupViewData{
			PageData:       PageData{Title: pageTitle("Kayıt Ol")},
			OAuthProviders: h.oauthProviderViews(),
			Error:          message,
			Email:          email,
			Name:           name,
		})
		return
	}

	session, _, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		h.log.Warn("login after registration failed", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	http.SetCookie(w, security.SessionCookie(r, security.SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout deletes the session and clears its cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			h.log.Warn("logout failed", "error", err)
		}
	}

	http.SetCookie(w, security.ExpiredCookie(r, security.SessionCookieName))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

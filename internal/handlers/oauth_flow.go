package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"studycards/internal/security"
)

// GoogleUserInfoURL returns the profile of the signed-in Google account
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

const oauthCookieTTL = 10 * time.Minute

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

func (h *AuthHandler) oauthProviderViews() []OAuthProviderView {
	var views []OAuthProviderView
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, OAuthProviderView{
			Name:     key,
			Label:    provider.Label,
			URL:      fmt.Sprintf("/auth/%s/start", key),
			CSSClass: "btn-" + key,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		h.oauthError(w, r, "oauth provider not configured", nil, http.StatusBadRequest)
		return
	}

	state, nonce, err := h.stateSigner.Issue(providerKey)
	if err != nil {
		h.oauthError(w, r, "failed to issue oauth state", err, http.StatusInternalServerError)
		return
	}
	h.setTempCookie(w, r, security.OAuthStateCookie, nonce, oauthCookieTTL)

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		h.oauthError(w, r, "oauth provider not configured", nil, http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.oauthError(w, r, "missing authorization code", nil, http.StatusBadRequest)
		return
	}

	nonce := ""
	if cookie, err := r.Cookie(security.OAuthStateCookie); err == nil {
		nonce = cookie.Value
	}
	if err := h.stateSigner.Verify(r.URL.Query().Get("state"), providerKey, nonce); err != nil {
		h.oauthError(w, r, "oauth state rejected", err, http.StatusBadRequest)
		return
	}
	h.clearTempCookie(w, r, security.OAuthStateCookie)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.oauthError(w, r, "failed to exchange oauth code", err, http.StatusBadRequest)
		return
	}

	info, err := fetchUserInfo(ctx, &config, provider.UserInfoURL, token)
	if err != nil {
		h.oauthError(w, r, "failed to fetch oauth user info", err, http.StatusBadGateway)
		return
	}

	session, _, err := h.authService.OAuthLogin(r.Context(), providerKey, info.Subject, info.Email, info.Name)
	if err != nil {
		h.oauthError(w, r, "oauth login failed", err, http.StatusBadRequest)
		return
	}

	http.SetCookie(w, security.SessionCookie(r, security.SessionCookieName, session.ID, session.ExpiresAt))
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func fetchUserInfo(ctx context.Context, config *oauth2.Config, userInfoURL string, token *oauth2.Token) (oauthUserInfo, error) {
	resp, err := config.Client(ctx, token).Get(userInfoURL)
	if err != nil {
		return oauthUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("user info returned status %d", resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse user info: %w", err)
	}
	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	cookie := security.SessionCookie(r, name, value, time.Now().Add(ttl))
	cookie.MaxAge = int(ttl.Seconds())
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, security.ExpiredCookie(r, name))
}

// oauthError logs the cause and shows the login page with a generic message
func (h *AuthHandler) oauthError(w http.ResponseWriter, r *http.Request, logMsg string, err error, status int) {
	h.log.Warn(logMsg, "status", status, "error", err)
	h.render(w, status, "login.tmpl", LoginViewData{
		PageData:       PageData{Title: pageTitle("Giriş Yap")},
		OAuthProviders: h.oauthProviderViews(),
		Error:          ErrOAuthFailed,
	})
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"kidquest/internal/models"
	"kidquest/internal/security"
)

const (
	oauthStateCookie = "oauth_state"
	oauthRoleCookie  = "oauth_role"
	oauthCookieTTL   = 10 * time.Minute
	oauthCookiePath  = "/api/auth"
)

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Config      *oauth2.Config
	UserInfoURL string
}

func (p OAuthProvider) enabled() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// StartOAuth redirects to the provider's consent page.
// The role a new account should get is carried through a cookie.
func (h *AuthHandler) StartOAuth(providerKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.oauthProviders[providerKey]
		if !ok || !provider.enabled() {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "OAuth provider not configured"})
			return
		}

		role := r.URL.Query().Get("role")
		if role == "" {
			role = models.RoleKid
		}
		if !models.IsValidRole(role) {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "role must be kid, parent or teacher"})
			return
		}

		state := security.GenerateState()
		http.SetCookie(w, security.CreateTempCookie(r, oauthStateCookie, state, oauthCookiePath, oauthCookieTTL))
		http.SetCookie(w, security.CreateTempCookie(r, oauthRoleCookie, role, oauthCookiePath, oauthCookieTTL))

		config := *provider.Config
		config.RedirectURL = h.oauthRedirectURL(r, providerKey)

		http.Redirect(w, r, config.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
	}
}

// OAuthCallback exchanges the authorization code and signs the user in
func (h *AuthHandler) OAuthCallback(providerKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.oauthProviders[providerKey]
		if !ok || !provider.enabled() {
			respondJSON(w, http.StatusNotFound, errorResponse{Error: "OAuth provider not configured"})
			return
		}

		state := r.URL.Query().Get("state")
		code := r.URL.Query().Get("code")
		if code == "" {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing authorization code"})
			return
		}

		stateCookie, err := r.Cookie(oauthStateCookie)
		if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid OAuth state"})
			return
		}

		role := models.RoleKid
		if cookie, err := r.Cookie(oauthRoleCookie); err == nil && models.IsValidRole(cookie.Value) {
			role = cookie.Value
		}

		http.SetCookie(w, security.CreateDeleteCookie(r, oauthStateCookie, oauthCookiePath))
		http.SetCookie(w, security.CreateDeleteCookie(r, oauthRoleCookie, oauthCookiePath))

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		config := *provider.Config
		config.RedirectURL = h.oauthRedirectURL(r, providerKey)

		token, err := config.Exchange(ctx, code)
		if err != nil {
			respondWithError(w, r, h.logger, http.StatusBadRequest, "Failed to exchange OAuth code", "OAuth exchange failed", err)
			return
		}

		userInfo, err := fetchUserInfo(ctx, provider, token)
		if err != nil {
			respondWithError(w, r, h.logger, http.StatusBadRequest, err.Error(), "OAuth user info failed", err)
			return
		}

		result, err := h.authService.OAuthLogin(r.Context(), providerKey, userInfo.Subject, userInfo.Email, userInfo.Name, role)
		if err != nil {
			respondWithServiceError(w, r, h.logger, err, "OAuth login failed")
			return
		}

		respondJSON(w, http.StatusOK, result)
	}
}

// fetchUserInfo reads the OpenID userinfo document with the access token
func fetchUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := provider.Config.Client(ctx, token)
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Name)
	}

	var payload struct {
		ID    string `json:"id"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Name)
	}

	subject := payload.ID
	if subject == "" {
		subject = payload.Sub
	}
	if subject == "" || payload.Email == "" {
		return oauthUserInfo{}, errors.New("provider did not return an email address")
	}

	return oauthUserInfo{Subject: subject, Email: payload.Email, Name: payload.Name}, nil
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
	return fmt.Sprintf("%s/api/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

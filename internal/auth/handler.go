package auth

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/transport"
	"github.com/frahmantamala/task-management/pkg/logger"
)

const sessionCookieName = "session"

type Handler struct {
	*transport.BaseHandler
	Service     *Service
	FrontendURL string
}

func NewHandler(svc *Service, frontendURL string) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
		FrontendURL: frontendURL,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]int64{"userId": userID})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, TokenDTO{Token: token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	var dto MeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.Service.Me(r.Context(), dto.Token)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, profile)
}

func (h *Handler) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	var dto CheckPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	allowed, err := h.Service.CheckPermissions(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, CheckPermissionsResultDTO{Allowed: allowed})
}

func (h *Handler) SwitchOrganization(w http.ResponseWriter, r *http.Request) {
	var dto SwitchOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.Service.SwitchOrganization(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, TokenDTO{Token: token})
}

// GoogleRedirect sends the browser to Google's consent screen with a
// signed state nonce.
func (h *Handler) GoogleRedirect(w http.ResponseWriter, r *http.Request) {
	redirectURL, err := h.Service.OAuthRedirectURL()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth flow: verify state, exchange code,
// sign the user in, set the session cookie, redirect to the dashboard.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	token, err := h.Service.LoginWithGoogle(r.Context(), state, code)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.FrontendURL+"/dashboard", http.StatusFound)
}

// SessionMiddleware verifies the bearer token (or session cookie) and
// stores the session identity in the request context.
func (h *Handler) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			if cookie, err := r.Cookie(sessionCookieName); err == nil {
				token = cookie.Value
			}
		}
		if token == "" {
			h.WriteMessage(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		session, err := h.Service.VerifyToken(token)
		if err != nil {
			h.Logger.Warn("token validation failed", "error", err)
			h.WriteMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := internal.ContextWithSession(r.Context(), session)
		ctx = logger.With(ctx, "user_id", session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if _, ok := err.(ValidationError); ok {
		h.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	h.WriteError(w, err)
}

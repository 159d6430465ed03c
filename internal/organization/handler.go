package organization

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/task-management/internal"
	"github.com/frahmantamala/task-management/internal/transport"
	"github.com/frahmantamala/task-management/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     svc,
	}
}

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var dto CreateOrganizationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.CreateOrganization(r.Context(), dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, result)
}

func (h *Handler) SendInvites(w http.ResponseWriter, r *http.Request) {
	organizationID, err := strconv.ParseInt(r.URL.Query().Get("organizationId"), 10, 64)
	if err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "organizationId query parameter is required")
		return
	}

	var dto SendInvitesDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.SendInvites(r.Context(), organizationID, dto); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]int{"invited": len(dto.Invites)})
}

func (h *Handler) ValidateInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	_, includeEmail := r.URL.Query()["register"]

	result, err := h.Service.ValidateInvite(r.Context(), token, includeEmail)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, result)
}

func (h *Handler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	outcome, err := h.Service.AcceptInvite(r.Context(), token)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if outcome.RequiresRegistration {
		// Exact payload shape and wording are part of the client contract.
		h.WriteData(w, http.StatusOK, map[string]string{
			"type":        InviteRegisterFirstType,
			"inviteToken": outcome.InviteToken,
			"message":     InviteRegisterFirstMessage,
		})
		return
	}

	h.WriteData(w, http.StatusOK, map[string]string{"token": outcome.Token})
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	roles, err := h.Service.ListRoles(r.Context(), session.UserID, *session.OrganizationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, roles)
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.CreateRole(r.Context(), session.UserID, *session.OrganizationID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, role)
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid role id")
		return
	}

	var dto UpdateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.UpdateRole(r.Context(), session.UserID, *session.OrganizationID, roleID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, role)
}

func (h *Handler) requireOrganizationSession(w http.ResponseWriter, r *http.Request) (*internal.Session, bool) {
	session, ok := internal.SessionFromContext(r.Context())
	if !ok {
		h.WriteMessage(w, http.StatusUnauthorized, "missing authorization token")
		return nil, false
	}
	if session.OrganizationID == nil {
		h.WriteMessage(w, http.StatusBadRequest, "token has no active organization")
		return nil, false
	}
	return session, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if _, ok := err.(ValidationError); ok {
		h.WriteMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	h.WriteError(w, err)
}

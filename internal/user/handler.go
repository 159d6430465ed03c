package user

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

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), session.UserID, *session.OrganizationID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, members)
}

func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	session, userID, ok := h.sessionAndUserID(w, r)
	if !ok {
		return
	}

	var dto UpdateUserDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	member, err := h.Service.UpdateMember(r.Context(), session.UserID, *session.OrganizationID, userID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, member)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	session, userID, ok := h.sessionAndUserID(w, r)
	if !ok {
		return
	}

	if err := h.Service.RemoveMember(r.Context(), session.UserID, *session.OrganizationID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]int64{"removed": userID})
}

func (h *Handler) sessionAndUserID(w http.ResponseWriter, r *http.Request) (*internal.Session, int64, bool) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return nil, 0, false
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid user id")
		return nil, 0, false
	}
	return session, userID, true
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

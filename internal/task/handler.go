package task

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

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	var dto CreateTaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.Service.CreateTask(r.Context(), session.UserID, *session.OrganizationID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, created)
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tasks, err := h.Service.ListTasks(r.Context(), session.UserID, *session.OrganizationID, limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, tasks)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	found, err := h.Service.GetTask(r.Context(), session.UserID, *session.OrganizationID, taskID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, found)
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	var dto UpdateTaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.Service.UpdateTask(r.Context(), session.UserID, *session.OrganizationID, taskID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, updated)
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteTask(r.Context(), session.UserID, *session.OrganizationID, taskID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]int64{"deleted": taskID})
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	var dto CreateCommentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment, err := h.Service.AddComment(r.Context(), session.UserID, *session.OrganizationID, taskID, dto)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, comment)
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	comments, err := h.Service.ListComments(r.Context(), session.UserID, *session.OrganizationID, taskID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, comments)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	session, taskID, ok := h.sessionAndTaskID(w, r)
	if !ok {
		return
	}

	commentID, err := strconv.ParseInt(chi.URLParam(r, "commentId"), 10, 64)
	if err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid comment id")
		return
	}

	if err := h.Service.DeleteComment(r.Context(), session.UserID, *session.OrganizationID, taskID, commentID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.WriteData(w, http.StatusOK, map[string]int64{"deleted": commentID})
}

func (h *Handler) sessionAndTaskID(w http.ResponseWriter, r *http.Request) (*internal.Session, int64, bool) {
	session, ok := h.requireOrganizationSession(w, r)
	if !ok {
		return nil, 0, false
	}

	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteMessage(w, http.StatusBadRequest, "invalid task id")
		return nil, 0, false
	}
	return session, taskID, true
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

package handler

import (
	"context"
	"net/http"
	"strings"

	"ikiraha-api/internal/model"
)

type userDirectory interface {
	ListUsers(ctx context.Context, query model.UserQuery) ([]model.Profile, model.Meta, error)
	GetProfile(ctx context.Context, userID int64) (model.Profile, error)
}

type UserHandler struct {
	service userDirectory
}

func NewUserHandler(service userDirectory) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	users, meta, err := h.service.ListUsers(r.Context(), model.UserQuery{
		Role:   strings.TrimSpace(query.Get("role")),
		Status: strings.ToLower(strings.TrimSpace(query.Get("status"))),
		Page:   parseIntOrDefault(query.Get("page"), 1),
		Limit:  parseIntOrDefault(query.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", model.UserList{Users: users}, &meta)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.service.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{"user": profile}, nil)
}

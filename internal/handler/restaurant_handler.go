package handler

import (
	"context"
	"net/http"
	"strings"

	"ikiraha-api/internal/model"
)

type restaurantCatalog interface {
	List(ctx context.Context, query model.RestaurantQuery) ([]model.Restaurant, model.Meta, error)
	Get(ctx context.Context, id int64) (model.Restaurant, error)
	Categories(ctx context.Context) ([]model.RestaurantCategory, error)
}

type RestaurantHandler struct {
	service restaurantCatalog
}

func NewRestaurantHandler(service restaurantCatalog) *RestaurantHandler {
	return &RestaurantHandler{service: service}
}

func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	restaurants, meta, err := h.service.List(r.Context(), model.RestaurantQuery{
		Search:   strings.TrimSpace(query.Get("search")),
		Category: strings.TrimSpace(query.Get("category")),
		Status:   strings.TrimSpace(query.Get("status")),
		Page:     parseIntOrDefault(query.Get("page"), 1),
		Limit:    parseIntOrDefault(query.Get("limit"), 20),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", model.RestaurantList{Restaurants: restaurants}, &meta)
}

func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	restaurant, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{"restaurant": restaurant}, nil)
}

func (h *RestaurantHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{"categories": categories}, nil)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ikiraha-api/internal/model"
	"ikiraha-api/internal/util"
	"ikiraha-api/pkg/apierror"
)

type RestaurantStore interface {
	List(ctx context.Context, query model.RestaurantQuery) ([]model.Restaurant, int, error)
	FindByID(ctx context.Context, id int64) (model.Restaurant, error)
	ListCategories(ctx context.Context) ([]model.RestaurantCategory, error)
}

type RestaurantService struct {
	store RestaurantStore
}

func NewRestaurantService(store RestaurantStore) *RestaurantService {
	return &RestaurantService{store: store}
}

var restaurantStatuses = map[string]struct{}{
	"": {}, "all": {}, "active": {}, "inactive": {}, "open": {}, "closed": {},
}

func (s *RestaurantService) List(ctx context.Context, query model.RestaurantQuery) ([]model.Restaurant, model.Meta, error) {
	query.Status = strings.ToLower(strings.TrimSpace(query.Status))
	if _, ok := restaurantStatuses[query.Status]; !ok {
		return nil, model.Meta{}, apierror.BadRequest("invalid status filter", query.Status)
	}
	query.Page, query.Limit = util.NormalizePage(query.Page, query.Limit)
	if err := checkPage(query.Page, query.Limit); err != nil {
		return nil, model.Meta{}, err
	}

	restaurants, total, err := s.store.List(ctx, query)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, model.NewMeta(query.Page, query.Limit, total), nil
}

func (s *RestaurantService) Get(ctx context.Context, id int64) (model.Restaurant, error) {
	restaurant, err := s.store.FindByID(ctx, id)
	if errors.Is(err, model.ErrRestaurantNotFound) {
		return model.Restaurant{}, apierror.NotFound("Restaurant not found", "")
	}
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("get restaurant: %w", err)
	}
	return restaurant, nil
}

func (s *RestaurantService) Categories(ctx context.Context) ([]model.RestaurantCategory, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

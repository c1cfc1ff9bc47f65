package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ikiraha-api/internal/model"
	"ikiraha-api/internal/util"
)

const restaurantColumns = `r.id, r.uuid::text, r.owner_id, r.category_id, r.name, r.slug, r.description,
	r.logo, r.cover_image, r.phone, r.email, r.address_line_1, r.city, r.country,
	r.latitude, r.longitude, r.delivery_fee, r.minimum_order_amount, r.estimated_delivery_time,
	r.rating, r.total_reviews, r.is_featured, r.is_active, r.is_open,
	COALESCE(rc.name, ''), COALESCE(o.first_name || ' ' || o.last_name, ''),
	r.created_at, r.updated_at`

const restaurantFrom = `FROM restaurants r
	LEFT JOIN restaurant_categories rc ON rc.id = r.category_id
	LEFT JOIN users o ON o.id = r.owner_id`

type RestaurantRepository struct {
	pool *pgxpool.Pool
}

func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{pool: pool}
}

func scanRestaurant(row pgx.Row) (model.Restaurant, error) {
	var rs model.Restaurant
	err := row.Scan(&rs.ID, &rs.UUID, &rs.OwnerID, &rs.CategoryID, &rs.Name, &rs.Slug, &rs.Description,
		&rs.Logo, &rs.CoverImage, &rs.Phone, &rs.Email, &rs.AddressLine1, &rs.City, &rs.Country,
		&rs.Latitude, &rs.Longitude, &rs.DeliveryFee, &rs.MinimumOrderAmount, &rs.EstimatedDeliveryTime,
		&rs.Rating, &rs.TotalReviews, &rs.IsFeatured, &rs.IsActive, &rs.IsOpen,
		&rs.CategoryName, &rs.OwnerName, &rs.CreatedAt, &rs.UpdatedAt)
	return rs, err
}

// List applies the same filters to the page and to the total count.
func (r *RestaurantRepository) List(ctx context.Context, query model.RestaurantQuery) ([]model.Restaurant, int, error) {
	offset, err := util.Offset(query.Page, query.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}

	where := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if search := strings.TrimSpace(query.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(r.name ILIKE $%d OR r.email ILIKE $%d OR r.description ILIKE $%d)", n, n, n))
	}
	if category := strings.TrimSpace(query.Category); category != "" && !strings.EqualFold(category, "all") {
		args = append(args, category)
		where = append(where, fmt.Sprintf("rc.name = $%d", len(args)))
	}
	switch strings.ToLower(strings.TrimSpace(query.Status)) {
	case "active":
		where = append(where, "r.is_active = TRUE")
	case "inactive":
		where = append(where, "r.is_active = FALSE")
	case "open":
		where = append(where, "r.is_open = TRUE")
	case "closed":
		where = append(where, "r.is_open = FALSE")
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+restaurantFrom+" "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count restaurants: %w", err)
	}

	args = append(args, query.Limit, offset)
	dataQuery := fmt.Sprintf("SELECT %s %s %s ORDER BY r.created_at DESC, r.id DESC LIMIT $%d OFFSET $%d",
		restaurantColumns, restaurantFrom, whereClause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]model.Restaurant, 0)
	for rows.Next() {
		rs, err := scanRestaurant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan restaurant: %w", err)
		}
		restaurants = append(restaurants, rs)
	}
	return restaurants, total, rows.Err()
}

func (r *RestaurantRepository) FindByID(ctx context.Context, id int64) (model.Restaurant, error) {
	rs, err := scanRestaurant(r.pool.QueryRow(ctx,
		"SELECT "+restaurantColumns+" "+restaurantFrom+" WHERE r.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Restaurant{}, model.ErrRestaurantNotFound
	}
	if err != nil {
		return model.Restaurant{}, fmt.Errorf("find restaurant by id: %w", err)
	}
	return rs, nil
}

func (r *RestaurantRepository) ListCategories(ctx context.Context) ([]model.RestaurantCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, description FROM restaurant_categories
		 WHERE is_active = TRUE ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list restaurant categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.RestaurantCategory, 0)
	for rows.Next() {
		var c model.RestaurantCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("scan restaurant category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

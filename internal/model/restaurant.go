package model

import "time"

type Restaurant struct {
	ID                    int64     `json:"id"`
	UUID                  string    `json:"uuid"`
	OwnerID               *int64    `json:"owner_id"`
	CategoryID            *int64    `json:"category_id"`
	Name                  string    `json:"name"`
	Slug                  string    `json:"slug"`
	Description           string    `json:"description"`
	Logo                  string    `json:"logo"`
	CoverImage            string    `json:"cover_image"`
	Phone                 string    `json:"phone"`
	Email                 string    `json:"email"`
	AddressLine1          string    `json:"address_line_1"`
	City                  string    `json:"city"`
	Country               string    `json:"country"`
	Latitude              *float64  `json:"latitude"`
	Longitude             *float64  `json:"longitude"`
	DeliveryFee           float64   `json:"delivery_fee"`
	MinimumOrderAmount    float64   `json:"minimum_order_amount"`
	EstimatedDeliveryTime int       `json:"estimated_delivery_time"`
	Rating                float64   `json:"rating"`
	TotalReviews          int       `json:"total_reviews"`
	IsFeatured            bool      `json:"is_featured"`
	IsActive              bool      `json:"is_active"`
	IsOpen                bool      `json:"is_open"`
	CategoryName          string    `json:"category_name"`
	OwnerName             string    `json:"owner_name"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type RestaurantCategory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RestaurantQuery struct {
	Search   string
	Category string
	Status   string
	Page     int
	Limit    int
}

type RestaurantList struct {
	Restaurants []Restaurant `json:"restaurants"`
}

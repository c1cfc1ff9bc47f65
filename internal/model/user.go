package model

import "time"

const (
	RoleCustomer        = "customer"
	RoleRestaurantOwner = "restaurant_owner"
	RoleAdmin           = "admin"
	RoleSuperAdmin      = "super_admin"
)

type Role struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// User is a full users row. PasswordHash never leaves the service layer;
// handlers only ever see Profile.
type User struct {
	ID           int64      `json:"id"`
	UUID         string     `json:"uuid"`
	RoleID       int64      `json:"role_id"`
	RoleName     string     `json:"role"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	Gender       *string    `json:"gender,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Profile struct {
	ID          int64      `json:"id"`
	UUID        string     `json:"uuid"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth string     `json:"date_of_birth,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u User) Profile() Profile {
	p := Profile{
		ID:          u.ID,
		UUID:        u.UUID,
		Email:       u.Email,
		Phone:       u.Phone,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.RoleName,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.DateOfBirth != nil {
		p.DateOfBirth = u.DateOfBirth.Format(DateLayout)
	}
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	return p
}

// DateLayout is the wire and storage format for date_of_birth.
const DateLayout = "2006-01-02"

// ProfileUpdate holds the whitelisted, already validated profile columns.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Phone       *string
	DateOfBirth *time.Time
	Gender      *string
}

func (u ProfileUpdate) Empty() bool {
	return len(u.Fields()) == 0
}

// Fields lists the column names the update touches.
func (u ProfileUpdate) Fields() []string {
	fields := make([]string, 0, 5)
	if u.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if u.LastName != nil {
		fields = append(fields, "last_name")
	}
	if u.Phone != nil {
		fields = append(fields, "phone")
	}
	if u.DateOfBirth != nil {
		fields = append(fields, "date_of_birth")
	}
	if u.Gender != nil {
		fields = append(fields, "gender")
	}
	return fields
}

type UserQuery struct {
	Role   string
	Status string
	Page   int
	Limit  int
}

type TokenClaims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	User      Profile `json:"user"`
	Token     string  `json:"token"`
	TokenType string  `json:"token_type"`
	ExpiresIn int64   `json:"expires_in"`
}

type TokenValidation struct {
	User      Profile     `json:"user"`
	TokenData TokenClaims `json:"token_data"`
}

type UserList struct {
	Users []Profile `json:"users"`
}

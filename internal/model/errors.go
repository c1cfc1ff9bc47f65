package model

import "errors"

var (
	// User related errors
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrPhoneTaken   = errors.New("phone already registered")
	ErrRoleNotFound = errors.New("role not found")
	ErrDuplicate    = errors.New("duplicate record")

	// Restaurant related errors
	ErrRestaurantNotFound = errors.New("restaurant not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)

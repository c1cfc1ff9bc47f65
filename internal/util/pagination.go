package util

import (
	"errors"
	"fmt"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	DefaultAuditLimit = 50
	MaxAuditLimit     = 200

	// MaxOffset bounds how deep a listing may page.
	MaxOffset = 1_000_000
)

var ErrPageOutOfRange = errors.New("page out of range")

// NormalizePage clamps page and limit into the range list endpoints accept.
func NormalizePage(page int, limit int) (int, int) {
	return NormalizePageWithin(page, limit, DefaultLimit, MaxLimit)
}

func NormalizePageWithin(page int, limit int, defaultLimit int, maxLimit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// Offset returns the row offset of page. Pages past MaxOffset are rejected
// before the multiplication can overflow.
func Offset(page int, limit int) (int, error) {
	if page < 1 || limit < 1 {
		return 0, fmt.Errorf("page %d limit %d: %w", page, limit, ErrPageOutOfRange)
	}
	if page-1 > MaxOffset/limit {
		return 0, fmt.Errorf("page %d limit %d: %w", page, limit, ErrPageOutOfRange)
	}
	return (page - 1) * limit, nil
}

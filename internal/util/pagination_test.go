package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, 20},
		{-3, 50, 1, 50},
		{4, 500, 4, 100},
		{2, 100, 2, 100},
	}

	for _, tt := range tests {
		tt := tt
		page, limit := NormalizePage(tt.page, tt.limit)
		require.Equal(t, tt.wantPage, page)
		require.Equal(t, tt.wantLimit, limit)
	}
}

func TestNormalizePageWithin(t *testing.T) {
	t.Parallel()

	page, limit := NormalizePageWithin(0, 0, 50, 200)
	require.Equal(t, 1, page)
	require.Equal(t, 50, limit)

	_, limit = NormalizePageWithin(3, 1000, 50, 200)
	require.Equal(t, 200, limit)
}

func TestOffset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       int
		limit      int
		want       int
		outOfRange bool
	}{
		{name: "first page", page: 1, limit: 20, want: 0},
		{name: "third page", page: 3, limit: 20, want: 40},
		{name: "deepest page", page: MaxOffset/100 + 1, limit: 100, want: MaxOffset},
		{name: "one past deepest", page: MaxOffset/100 + 2, limit: 100, outOfRange: true},
		{name: "overflowing page", page: 100000000000000000, limit: 100, outOfRange: true},
		{name: "zero limit", page: 1, limit: 0, outOfRange: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			offset, err := Offset(tt.page, tt.limit)
			if tt.outOfRange {
				require.ErrorIs(t, err, ErrPageOutOfRange)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, offset)
		})
	}
}

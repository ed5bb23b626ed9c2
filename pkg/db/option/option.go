// Package option provides composable query modifiers for gorm statements.
package option

import (
	"time"

	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithSortBy orders by one of the allowed columns, defaulting to created_at.
func WithSortBy(column, direction string, allowed map[string]bool) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if !allowed[column] {
			column = "created_at"
		}
		if direction != "asc" {
			direction = "desc"
		}
		return db.Order(column + " " + direction)
	})
}

// ApplyPagination applies a keyset page: rows strictly before the cursor in
// (created_at, id) order, fetching one extra row for has-more detection.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		size := page.PageSize
		if size <= 0 {
			size = 10
		}
		if size > 250 {
			size = 250
		}

		if page.PageToken != "" {
			cursor, err := pagination.DecodeCursor(page.PageToken)
			if err == nil && cursor != nil && cursor.CreatedAt != "" {
				// Bind as time.Time so every dialect compares timestamps,
				// not strings.
				if at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil {
					db = db.Where(
						"(created_at < ?) OR (created_at = ? AND id < ?)",
						at, at, cursor.ID,
					)
				}
			}
		}

		return db.Limit(size + 1)
	})
}

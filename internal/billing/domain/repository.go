package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert adds a bill, doing nothing on a (lease, category, period)
	// conflict. The returned bool reports whether the row was written.
	Insert(ctx context.Context, db *gorm.DB, bill *Bill) (bool, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, category string, periodStart, periodEnd time.Time) (*Bill, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	Update(ctx context.Context, db *gorm.DB, bill *Bill) error
	List(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, paid *bool) ([]Bill, error)
}

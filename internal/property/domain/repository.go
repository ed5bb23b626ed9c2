package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProperty(ctx context.Context, db *gorm.DB, p *Property) error
	FindPropertyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Property, error)
	ListProperties(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Property, error)
	InsertLease(ctx context.Context, db *gorm.DB, l *Lease) error
	FindLeaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lease, error)
	FindActiveLease(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, at time.Time) (*Lease, error)
}

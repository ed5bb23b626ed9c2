package repository

import (
	"context"
	"time"

	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() propertydomain.Repository {
	return &repo{}
}

func (r *repo) InsertProperty(ctx context.Context, db *gorm.DB, p *propertydomain.Property) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO properties (id, owner_id, name, address, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OwnerID,
		p.Name,
		p.Address,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindPropertyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*propertydomain.Property, error) {
	var property propertydomain.Property
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, name, address, created_at, updated_at
		 FROM properties WHERE id = ?`,
		id,
	).Scan(&property).Error
	if err != nil {
		return nil, err
	}
	if property.ID == 0 {
		return nil, nil
	}
	return &property, nil
}

func (r *repo) ListProperties(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]propertydomain.Property, error) {
	var properties []propertydomain.Property
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, name, address, created_at, updated_at
		 FROM properties WHERE owner_id = ? ORDER BY created_at ASC`,
		ownerID,
	).Scan(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *repo) InsertLease(ctx context.Context, db *gorm.DB, l *propertydomain.Lease) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO leases (id, property_id, tenant_id, start_date, end_date, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.PropertyID,
		l.TenantID,
		l.StartDate,
		l.EndDate,
		l.Active,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) FindLeaseByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*propertydomain.Lease, error) {
	var lease propertydomain.Lease
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, tenant_id, start_date, end_date, active, created_at, updated_at
		 FROM leases WHERE id = ?`,
		id,
	).Scan(&lease).Error
	if err != nil {
		return nil, err
	}
	if lease.ID == 0 {
		return nil, nil
	}
	return &lease, nil
}

func (r *repo) FindActiveLease(ctx context.Context, db *gorm.DB, propertyID snowflake.ID, at time.Time) (*propertydomain.Lease, error) {
	var lease propertydomain.Lease
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, tenant_id, start_date, end_date, active, created_at, updated_at
		 FROM leases
		 WHERE property_id = ? AND active = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY start_date DESC LIMIT 1`,
		propertyID,
		true,
		at,
		at,
	).Scan(&lease).Error
	if err != nil {
		return nil, err
	}
	if lease.ID == 0 {
		return nil, nil
	}
	return &lease, nil
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateProperty(ctx context.Context, req CreatePropertyRequest) (*Property, error)
	GetProperty(ctx context.Context, id string) (*Property, error)
	ListProperties(ctx context.Context, ownerID string) ([]Property, error)
	CreateLease(ctx context.Context, req CreateLeaseRequest) (*Lease, error)
	GetLease(ctx context.Context, id snowflake.ID) (*Lease, error)
	// ActiveLeaseForProperty returns the lease in force on the property at
	// the given instant, or ErrNoActiveLease.
	ActiveLeaseForProperty(ctx context.Context, propertyID snowflake.ID, at time.Time) (*Lease, error)
}

type CreatePropertyRequest struct {
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type CreateLeaseRequest struct {
	PropertyID string     `json:"property_id"`
	TenantID   string     `json:"tenant_id"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
}

var (
	ErrInvalidOwner    = errors.New("invalid_owner")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidAddress  = errors.New("invalid_address")
	ErrInvalidProperty = errors.New("invalid_property")
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidPeriod   = errors.New("invalid_lease_period")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrNoActiveLease   = errors.New("no_active_lease")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Meter, error)
	List(ctx context.Context, propertyID string) ([]Meter, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Meter, error)
	UpdatePrice(ctx context.Context, req UpdatePriceRequest) (*Meter, error)
}

type CreateRequest struct {
	PropertyID   string `json:"property_id"`
	UtilityType  string `json:"utility_type"`
	PricePerUnit string `json:"price_per_unit"`
	Currency     string `json:"currency"`
	SerialNumber string `json:"serial_number"`
}

type UpdatePriceRequest struct {
	ID           string `json:"id"`
	PricePerUnit string `json:"price_per_unit"`
}

var (
	ErrInvalidProperty    = errors.New("invalid_property")
	ErrInvalidUtilityType = errors.New("invalid_utility_type")
	ErrInvalidPrice       = errors.New("invalid_price_per_unit")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidSerial      = errors.New("invalid_serial_number")
	ErrDuplicateSerial    = errors.New("duplicate_serial_number")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

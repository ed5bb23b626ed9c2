package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
)

type Service interface {
	// Aggregate applies one costed reading to the bill for its lease and
	// period, creating the bill on first contribution. A nil consumption or
	// a zero cost with no bill to merge into is a no-op returning (nil, nil).
	Aggregate(ctx context.Context, req AggregateRequest) (*Bill, error)
	List(ctx context.Context, req ListRequest) ([]Bill, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Bill, error)
	MarkPaid(ctx context.Context, id snowflake.ID) (*Bill, error)
}

type AggregateRequest struct {
	LeaseID         snowflake.ID
	UtilityType     meterdomain.UtilityType
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Consumption     *decimal.Decimal
	Cost            decimal.Decimal
	PreviousReading *decimal.Decimal
	CurrentReading  decimal.Decimal
	ReadingID       snowflake.ID
	Currency        string
}

type ListRequest struct {
	LeaseID string `form:"lease_id"`
	Paid    *bool  `form:"paid"`
}

var (
	ErrInvalidLease    = errors.New("invalid_lease")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrInvalidCost     = errors.New("invalid_cost")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("bill_not_found")
)

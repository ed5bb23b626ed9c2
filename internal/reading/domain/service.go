package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

type Service interface {
	// Ingest validates, persists and bills a reading submission. The actor
	// must be present on the context.
	Ingest(ctx context.Context, req IngestRequest) (*MeterReading, error)
	// Verify confirms a tenant-submitted reading. Verifying an already
	// verified reading is a no-op returning the stored row.
	Verify(ctx context.Context, id snowflake.ID) (*MeterReading, error)
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
}

type IngestRequest struct {
	MeterID     string     `json:"meter_id"`
	LeaseID     string     `json:"lease_id,omitempty"`
	Kind        string     `json:"reading_type"`
	Value       string     `json:"value"`
	PhotoURL    string     `json:"photo_url,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ReadingAt   *time.Time `json:"reading_date,omitempty"`
	PeriodStart string     `json:"period_start,omitempty"`
	PeriodEnd   string     `json:"period_end,omitempty"`
}

type ListRequest struct {
	MeterID    string `form:"meter_id"`
	LeaseID    string `form:"lease_id"`
	Verified   *bool  `form:"verified"`
	Pagination pagination.Pagination
}

type ListResponse struct {
	Data     []*MeterReading      `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidMeter    = errors.New("invalid_meter")
	ErrInvalidKind     = errors.New("invalid_reading_type")
	ErrInvalidValue    = errors.New("invalid_value")
	ErrInvalidLease    = errors.New("invalid_lease")
	ErrInvalidPeriod   = errors.New("invalid_period")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("reading_not_found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrVerifyForbidden = errors.New("verify_forbidden")
	ErrRateLimited     = errors.New("rate_limited")

	// ErrValueRegression is the errors.Is target for RegressionError.
	ErrValueRegression = errors.New("value_regression")
)

// RegressionError rejects a value below the meter's last known value and
// carries both figures for operator diagnosis.
type RegressionError struct {
	Previous  decimal.Decimal
	Submitted decimal.Decimal
}

func (e *RegressionError) Error() string {
	return fmt.Sprintf("reading cannot be lower than previous reading of %s", e.Previous)
}

func (e *RegressionError) Is(target error) bool {
	return target == ErrValueRegression
}

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}

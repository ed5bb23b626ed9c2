package service

import (
	"context"
	"strings"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  meterdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  meterdomain.Repository
}

func New(p Params) meterdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("meter.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req meterdomain.CreateRequest) (*meterdomain.Meter, error) {
	propertyID, err := meterdomain.ParseID(strings.TrimSpace(req.PropertyID))
	if err != nil || propertyID == 0 {
		return nil, meterdomain.ErrInvalidProperty
	}

	utilityType, ok := meterdomain.ParseUtilityType(req.UtilityType)
	if !ok {
		return nil, meterdomain.ErrInvalidUtilityType
	}

	price, err := parsePrice(req.PricePerUnit)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		return nil, meterdomain.ErrInvalidCurrency
	}

	serial := strings.TrimSpace(req.SerialNumber)
	if serial == "" {
		return nil, meterdomain.ErrInvalidSerial
	}

	now := s.clock.Now()
	meter := &meterdomain.Meter{
		ID:           s.genID.Generate(),
		PropertyID:   propertyID,
		UtilityType:  utilityType,
		PricePerUnit: price,
		Currency:     currency,
		SerialNumber: serial,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, meter); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, meterdomain.ErrDuplicateSerial
		}
		return nil, err
	}

	return meter, nil
}

func (s *Service) List(ctx context.Context, propertyID string) ([]meterdomain.Meter, error) {
	id, err := meterdomain.ParseID(strings.TrimSpace(propertyID))
	if err != nil || id == 0 {
		return nil, meterdomain.ErrInvalidProperty
	}
	return s.repo.List(ctx, s.db, id)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*meterdomain.Meter, error) {
	if id == 0 {
		return nil, meterdomain.ErrInvalidID
	}

	meter, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, meterdomain.ErrNotFound
	}
	return meter, nil
}

func (s *Service) UpdatePrice(ctx context.Context, req meterdomain.UpdatePriceRequest) (*meterdomain.Meter, error) {
	meterID, err := meterdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil || meterID == 0 {
		return nil, meterdomain.ErrInvalidID
	}

	price, err := parsePrice(req.PricePerUnit)
	if err != nil {
		return nil, err
	}

	meter, err := s.repo.FindByID(ctx, s.db, meterID)
	if err != nil {
		return nil, err
	}
	if meter == nil {
		return nil, meterdomain.ErrNotFound
	}

	meter.PricePerUnit = price
	meter.UpdatedAt = s.clock.Now()

	if err := s.repo.UpdatePrice(ctx, s.db, meter); err != nil {
		return nil, err
	}

	return meter, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, meterdomain.ErrInvalidPrice
	}
	return price, nil
}

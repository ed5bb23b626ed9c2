package service

import (
	"context"
	"strings"
	"time"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
	"github.com/bwmarrin/snowflake"
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
	Repo  propertydomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  propertydomain.Repository
}

func New(p Params) propertydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("property.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) CreateProperty(ctx context.Context, req propertydomain.CreatePropertyRequest) (*propertydomain.Property, error) {
	ownerID, err := propertydomain.ParseID(strings.TrimSpace(req.OwnerID))
	if err != nil || ownerID == 0 {
		return nil, propertydomain.ErrInvalidOwner
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, propertydomain.ErrInvalidName
	}

	address := strings.TrimSpace(req.Address)
	if address == "" {
		return nil, propertydomain.ErrInvalidAddress
	}

	now := s.clock.Now()
	property := &propertydomain.Property{
		ID:        s.genID.Generate(),
		OwnerID:   ownerID,
		Name:      name,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.InsertProperty(ctx, s.db, property); err != nil {
		return nil, err
	}

	return property, nil
}

func (s *Service) GetProperty(ctx context.Context, id string) (*propertydomain.Property, error) {
	propertyID, err := propertydomain.ParseID(strings.TrimSpace(id))
	if err != nil || propertyID == 0 {
		return nil, propertydomain.ErrInvalidID
	}

	property, err := s.repo.FindPropertyByID(ctx, s.db, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, propertydomain.ErrNotFound
	}
	return property, nil
}

func (s *Service) ListProperties(ctx context.Context, ownerID string) ([]propertydomain.Property, error) {
	id, err := propertydomain.ParseID(strings.TrimSpace(ownerID))
	if err != nil || id == 0 {
		return nil, propertydomain.ErrInvalidOwner
	}
	return s.repo.ListProperties(ctx, s.db, id)
}

func (s *Service) CreateLease(ctx context.Context, req propertydomain.CreateLeaseRequest) (*propertydomain.Lease, error) {
	propertyID, err := propertydomain.ParseID(strings.TrimSpace(req.PropertyID))
	if err != nil || propertyID == 0 {
		return nil, propertydomain.ErrInvalidProperty
	}

	tenantID, err := propertydomain.ParseID(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return nil, propertydomain.ErrInvalidTenant
	}

	if req.StartDate.IsZero() {
		return nil, propertydomain.ErrInvalidPeriod
	}
	if req.EndDate != nil && !req.EndDate.After(req.StartDate) {
		return nil, propertydomain.ErrInvalidPeriod
	}

	property, err := s.repo.FindPropertyByID(ctx, s.db, propertyID)
	if err != nil {
		return nil, err
	}
	if property == nil {
		return nil, propertydomain.ErrInvalidProperty
	}

	now := s.clock.Now()
	lease := &propertydomain.Lease{
		ID:         s.genID.Generate(),
		PropertyID: propertyID,
		TenantID:   tenantID,
		StartDate:  req.StartDate.UTC(),
		EndDate:    req.EndDate,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.InsertLease(ctx, s.db, lease); err != nil {
		return nil, err
	}

	return lease, nil
}

func (s *Service) GetLease(ctx context.Context, id snowflake.ID) (*propertydomain.Lease, error) {
	if id == 0 {
		return nil, propertydomain.ErrInvalidID
	}
	lease, err := s.repo.FindLeaseByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, propertydomain.ErrNotFound
	}
	return lease, nil
}

func (s *Service) ActiveLeaseForProperty(ctx context.Context, propertyID snowflake.ID, at time.Time) (*propertydomain.Lease, error) {
	if propertyID == 0 {
		return nil, propertydomain.ErrInvalidProperty
	}
	lease, err := s.repo.FindActiveLease(ctx, s.db, propertyID, at)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, propertydomain.ErrNoActiveLease
	}
	return lease, nil
}

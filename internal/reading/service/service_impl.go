package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/actorctx"
	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/observability/metrics"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ocr"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/pricing"
	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ratelimit"
	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

type Params struct {
	fx.In

	Config     config.Config
	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       readingdomain.Repository
	Meters     meterdomain.Service
	Properties propertydomain.Service
	Billing    billingdomain.Service
	OCR        ocr.Processor
	Limiter    *ratelimit.ReadingIngestLimiter `optional:"true"`
	Metrics    *metrics.Metrics                `optional:"true"`
}

type Service struct {
	cfg        config.Config
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       readingdomain.Repository
	meters     meterdomain.Service
	properties propertydomain.Service
	billing    billingdomain.Service
	ocr        ocr.Processor
	limiter    *ratelimit.ReadingIngestLimiter
	metrics    *metrics.Metrics
}

func New(p Params) readingdomain.Service {
	return &Service{
		cfg:        p.Config,
		db:         p.DB,
		log:        p.Log.Named("reading.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		meters:     p.Meters,
		properties: p.Properties,
		billing:    p.Billing,
		ocr:        p.OCR,
		limiter:    p.Limiter,
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req readingdomain.IngestRequest) (*readingdomain.MeterReading, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return nil, readingdomain.ErrUnauthorized
	}
	caps := actorctx.CapabilitiesFor(actor.Role)

	meterID, err := readingdomain.ParseID(strings.TrimSpace(req.MeterID))
	if err != nil || meterID == 0 {
		return nil, readingdomain.ErrInvalidMeter
	}
	meter, err := s.meters.GetByID(ctx, meterID)
	if err != nil {
		if errors.Is(err, meterdomain.ErrNotFound) {
			return nil, readingdomain.ErrInvalidMeter
		}
		return nil, err
	}

	kind, ok := readingdomain.ParseReadingKind(req.Kind)
	if !ok {
		return nil, readingdomain.ErrInvalidKind
	}

	value, err := decimal.NewFromString(strings.TrimSpace(req.Value))
	if err != nil {
		s.rejected(ctx, meter.UtilityType, "invalid_value")
		return nil, readingdomain.ErrInvalidValue
	}

	now := s.clock.Now()
	readingAt := now
	if req.ReadingAt != nil && !req.ReadingAt.IsZero() {
		readingAt = req.ReadingAt.UTC()
	}

	periodStart, periodEnd, err := resolvePeriod(req.PeriodStart, req.PeriodEnd, readingAt)
	if err != nil {
		return nil, err
	}

	lease, err := s.resolveLease(ctx, req.LeaseID, meter.PropertyID, readingAt, caps)
	if err != nil {
		return nil, err
	}

	if allowed, err := s.limiter.AllowProperty(ctx, meter.PropertyID); err != nil {
		s.log.Warn("ingest rate limiter unavailable", zap.Error(err))
	} else if !allowed {
		s.metrics.RecordRateLimitDenied(ctx, "readings_ingest", "property_rate")
		return nil, readingdomain.ErrRateLimited
	}

	reading := &readingdomain.MeterReading{
		ID:          s.genID.Generate(),
		MeterID:     meter.ID,
		SubmittedBy: actor.ID,
		Kind:        kind,
		Value:       value,
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		Notes:       strings.TrimSpace(req.Notes),
		Verified:    caps.CanAutoVerify,
		ReadingAt:   readingAt,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		CreatedAt:   now,
	}
	if lease != nil {
		reading.LeaseID = &lease.ID
	}
	if reading.Verified {
		verifier := actor.ID
		reading.VerifiedBy = &verifier
		reading.VerifiedAt = &now
	}

	// Best-effort enrichment outside the meter lock; a slow or failing OCR
	// service must not hold up validation.
	s.enrich(ctx, reading, meter.UtilityType)

	token, err := s.limiter.LockMeter(ctx, meter.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = s.limiter.ReleaseMeter(ctx, meter.ID, token)
	}()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		latest, err := s.repo.FindLatestForUpdate(ctx, tx, meter.ID)
		if err != nil {
			return err
		}

		var previous *decimal.Decimal
		if latest != nil {
			previous = &latest.Value
		}
		if err := readingdomain.ValidateValue(value, previous); err != nil {
			return err
		}
		reading.Consumption = readingdomain.ConsumptionOf(value, previous)

		return s.repo.Insert(ctx, tx, reading)
	})
	if err != nil {
		var regression *readingdomain.RegressionError
		switch {
		case errors.As(err, &regression):
			s.rejected(ctx, meter.UtilityType, "value_regression")
		case errors.Is(err, readingdomain.ErrInvalidValue):
			s.rejected(ctx, meter.UtilityType, "invalid_value")
		}
		return nil, err
	}
	s.metrics.RecordReadingAccepted(ctx, string(meter.UtilityType))

	// The reading is durable from here on. Aggregation failures are reported
	// but never surfaced; bills are a re-computable projection of the log.
	s.aggregate(ctx, reading, meter, lease)

	return reading, nil
}

func (s *Service) resolveLease(ctx context.Context, rawLeaseID string, propertyID snowflake.ID, at time.Time, caps actorctx.Capabilities) (*propertydomain.Lease, error) {
	if raw := strings.TrimSpace(rawLeaseID); raw != "" {
		leaseID, err := readingdomain.ParseID(raw)
		if err != nil || leaseID == 0 {
			return nil, readingdomain.ErrInvalidLease
		}
		lease, err := s.properties.GetLease(ctx, leaseID)
		if err != nil {
			if errors.Is(err, propertydomain.ErrNotFound) {
				return nil, readingdomain.ErrInvalidLease
			}
			return nil, err
		}
		if lease.PropertyID != propertyID {
			return nil, readingdomain.ErrInvalidLease
		}
		return lease, nil
	}

	lease, err := s.properties.ActiveLeaseForProperty(ctx, propertyID, at)
	if err != nil {
		if errors.Is(err, propertydomain.ErrNoActiveLease) && !caps.MustOwnActiveLease {
			// Managers and owners may record readings on vacant properties;
			// there is simply no one to bill.
			return nil, nil
		}
		return nil, err
	}
	return lease, nil
}

func (s *Service) enrich(ctx context.Context, reading *readingdomain.MeterReading, utilityType meterdomain.UtilityType) {
	if reading.PhotoURL == "" {
		return
	}

	ocrCtx, cancel := context.WithTimeout(ctx, s.cfg.OCR.Timeout)
	defer cancel()

	result, err := s.ocr.ProcessMeterImage(ocrCtx, reading.PhotoURL, utilityType)
	if err != nil {
		s.metrics.RecordOCRFailure(ctx, string(utilityType))
		s.log.Info("ocr enrichment skipped",
			zap.String("meter_id", reading.MeterID.String()),
			zap.Error(err),
		)
		return
	}

	reading.OCRConfidence = &result.Confidence
	reading.OCRProcessed = true
}

func (s *Service) aggregate(ctx context.Context, reading *readingdomain.MeterReading, meter *meterdomain.Meter, lease *propertydomain.Lease) {
	if lease == nil || reading.Consumption == nil {
		return
	}

	cost, err := pricing.Cost(meter.UtilityType, *reading.Consumption, meter.PricePerUnit)
	if err != nil {
		s.reportAggregationFailure(ctx, reading, err)
		return
	}

	var previous *decimal.Decimal
	if reading.Consumption != nil {
		prev := reading.Value.Sub(*reading.Consumption)
		previous = &prev
	}

	_, err = s.billing.Aggregate(ctx, billingdomain.AggregateRequest{
		LeaseID:         lease.ID,
		UtilityType:     meter.UtilityType,
		PeriodStart:     reading.PeriodStart,
		PeriodEnd:       reading.PeriodEnd,
		Consumption:     reading.Consumption,
		Cost:            cost,
		PreviousReading: previous,
		CurrentReading:  reading.Value,
		ReadingID:       reading.ID,
		Currency:        meter.Currency,
	})
	if err != nil {
		s.reportAggregationFailure(ctx, reading, err)
	}
}

func (s *Service) reportAggregationFailure(ctx context.Context, reading *readingdomain.MeterReading, err error) {
	s.metrics.RecordAggregationFailure(ctx, billingdomain.CategoryUtilities)
	s.log.Error("bill aggregation failed, reading stands",
		zap.String("reading_id", reading.ID.String()),
		zap.String("meter_id", reading.MeterID.String()),
		zap.Error(err),
	)
}

func (s *Service) Verify(ctx context.Context, id snowflake.ID) (*readingdomain.MeterReading, error) {
	actor, ok := actorctx.ActorFromContext(ctx)
	if !ok {
		return nil, readingdomain.ErrUnauthorized
	}
	if !actorctx.CapabilitiesFor(actor.Role).CanVerifyReadings {
		return nil, readingdomain.ErrVerifyForbidden
	}
	if id == 0 {
		return nil, readingdomain.ErrInvalidID
	}

	var reading *readingdomain.MeterReading
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return readingdomain.ErrNotFound
		}
		if found.Verified {
			reading = found
			return nil
		}

		now := s.clock.Now()
		verifier := actor.ID
		found.Verified = true
		found.VerifiedBy = &verifier
		found.VerifiedAt = &now
		if err := s.repo.MarkVerified(ctx, tx, found); err != nil {
			return err
		}
		reading = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *Service) List(ctx context.Context, req readingdomain.ListRequest) (*readingdomain.ListResponse, error) {
	var filter readingdomain.ListFilter
	if raw := strings.TrimSpace(req.MeterID); raw != "" {
		id, err := readingdomain.ParseID(raw)
		if err != nil || id == 0 {
			return nil, readingdomain.ErrInvalidMeter
		}
		filter.MeterID = id
	}
	if raw := strings.TrimSpace(req.LeaseID); raw != "" {
		id, err := readingdomain.ParseID(raw)
		if err != nil || id == 0 {
			return nil, readingdomain.ErrInvalidLease
		}
		filter.LeaseID = id
	}
	filter.Verified = req.Verified

	page := req.Pagination
	if page.PageSize <= 0 {
		page.PageSize = 10
	}

	readings, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return nil, err
	}

	pageInfo, readings := pagination.BuildCursorPageInfo(readings, page.PageSize, func(r *readingdomain.MeterReading) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		return token
	})

	return &readingdomain.ListResponse{Data: readings, PageInfo: pageInfo}, nil
}

func (s *Service) rejected(ctx context.Context, utilityType meterdomain.UtilityType, reason string) {
	s.metrics.RecordReadingRejected(ctx, string(utilityType), reason)
}

func resolvePeriod(rawStart, rawEnd string, readingAt time.Time) (time.Time, time.Time, error) {
	rawStart = strings.TrimSpace(rawStart)
	rawEnd = strings.TrimSpace(rawEnd)

	if rawStart == "" && rawEnd == "" {
		at := readingAt.UTC()
		start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).AddDate(0, 0, -1)
		return start, end, nil
	}
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, readingdomain.ErrInvalidPeriod
	}

	start, err := time.ParseInLocation("2006-01-02", rawStart, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, readingdomain.ErrInvalidPeriod
	}
	end, err := time.ParseInLocation("2006-01-02", rawEnd, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, readingdomain.ErrInvalidPeriod
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, readingdomain.ErrInvalidPeriod
	}
	return start, end, nil
}

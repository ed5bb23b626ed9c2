package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/observability/metrics"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ratelimit"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    billingdomain.Repository
	Limiter *ratelimit.ReadingIngestLimiter `optional:"true"`
	Metrics *metrics.Metrics                `optional:"true"`
}

type Service struct {
	cfg     config.BillingConfig
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    billingdomain.Repository
	limiter *ratelimit.ReadingIngestLimiter
	metrics *metrics.Metrics
}

func New(p Params) billingdomain.Service {
	return &Service{
		cfg:     p.Config.Billing,
		db:      p.DB,
		log:     p.Log.Named("billing.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (s *Service) Aggregate(ctx context.Context, req billingdomain.AggregateRequest) (*billingdomain.Bill, error) {
	if req.LeaseID == 0 {
		return nil, billingdomain.ErrInvalidLease
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || !req.PeriodStart.Before(req.PeriodEnd) {
		return nil, billingdomain.ErrInvalidPeriod
	}
	if req.Cost.IsNegative() {
		return nil, billingdomain.ErrInvalidCost
	}

	// A baseline reading has no consumption and establishes a reference
	// point, not a charge.
	if req.Consumption == nil {
		return nil, nil
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}
	if currency == "" {
		return nil, billingdomain.ErrInvalidCurrency
	}

	category := billingdomain.CategoryUtilities
	token, locked, err := s.limiter.TryLockBill(ctx, req.LeaseID, category, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		s.log.Warn("bill lock unavailable, relying on row locks", zap.Error(err))
	}
	if locked {
		defer func() {
			_ = s.limiter.ReleaseBill(ctx, req.LeaseID, category, req.PeriodStart, req.PeriodEnd, token)
		}()
	}

	var (
		bill    *billingdomain.Bill
		merged  bool
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindForUpdate(ctx, tx, req.LeaseID, category, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if existing != nil {
			bill, merged, err = s.merge(ctx, tx, existing, req)
			return err
		}

		// Zero cost with nothing to correct never creates an empty bill.
		if req.Cost.IsZero() {
			return nil
		}

		fresh, inserted, err := s.create(ctx, tx, req, category, currency)
		if err != nil {
			return err
		}
		if inserted {
			bill = fresh
			created = true
			return nil
		}

		// A concurrent writer won the insert. Re-fetch under lock and merge.
		existing, err = s.repo.FindForUpdate(ctx, tx, req.LeaseID, category, req.PeriodStart, req.PeriodEnd)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("bill insert conflicted but row not found for lease %d", req.LeaseID)
		}
		bill, merged, err = s.merge(ctx, tx, existing, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	switch {
	case merged:
		s.metrics.RecordBillMerged(ctx, category)
	case created:
		s.metrics.RecordBillCreated(ctx, category)
	}
	return bill, nil
}

func (s *Service) create(ctx context.Context, tx *gorm.DB, req billingdomain.AggregateRequest, category, currency string) (*billingdomain.Bill, bool, error) {
	now := s.clock.Now()
	breakdown := billingdomain.Breakdown{}
	breakdown.Merge(req.UtilityType, contributionFrom(req))

	bill := &billingdomain.Bill{
		ID:       s.genID.Generate(),
		LeaseID:  req.LeaseID,
		Category: category,
		Description: fmt.Sprintf("Utility charges %s to %s",
			req.PeriodStart.Format("2006-01-02"), req.PeriodEnd.Format("2006-01-02")),
		Amount:      req.Cost,
		Currency:    currency,
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		DueDate:     now.AddDate(0, 0, s.cfg.GraceDays),
		Paid:        false,
		Breakdown:   datatypes.NewJSONType(breakdown),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	inserted, err := s.repo.Insert(ctx, tx, bill)
	if err != nil {
		return nil, false, err
	}
	return bill, inserted, nil
}

// merge folds the contribution into an existing bill. The second return
// value reports whether the bill actually changed; a zero-cost contribution
// with no matching breakdown entry leaves it untouched.
func (s *Service) merge(ctx context.Context, tx *gorm.DB, bill *billingdomain.Bill, req billingdomain.AggregateRequest) (*billingdomain.Bill, bool, error) {
	breakdown := bill.Breakdown.Data()
	if breakdown == nil {
		breakdown = billingdomain.Breakdown{}
	}

	// A zero-cost contribution only matters as a correction to an existing
	// entry for this utility type.
	if req.Cost.IsZero() {
		if _, ok := breakdown[req.UtilityType]; !ok {
			return bill, false, nil
		}
	}

	delta := breakdown.Merge(req.UtilityType, contributionFrom(req))
	bill.Amount = bill.Amount.Add(delta)
	bill.Breakdown = datatypes.NewJSONType(breakdown)
	bill.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, tx, bill); err != nil {
		return nil, false, err
	}
	return bill, true, nil
}

func contributionFrom(req billingdomain.AggregateRequest) billingdomain.Contribution {
	return billingdomain.Contribution{
		Consumption:     *req.Consumption,
		Cost:            req.Cost,
		PreviousReading: req.PreviousReading,
		CurrentReading:  req.CurrentReading,
		ReadingID:       req.ReadingID,
	}
}

func (s *Service) List(ctx context.Context, req billingdomain.ListRequest) ([]billingdomain.Bill, error) {
	leaseID, err := snowflake.ParseString(strings.TrimSpace(req.LeaseID))
	if err != nil || leaseID == 0 {
		return nil, billingdomain.ErrInvalidLease
	}
	return s.repo.List(ctx, s.db, leaseID, req.Paid)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*billingdomain.Bill, error) {
	if id == 0 {
		return nil, billingdomain.ErrInvalidID
	}

	bill, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, billingdomain.ErrNotFound
	}
	return bill, nil
}

func (s *Service) MarkPaid(ctx context.Context, id snowflake.ID) (*billingdomain.Bill, error) {
	if id == 0 {
		return nil, billingdomain.ErrInvalidID
	}

	var bill *billingdomain.Bill
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return billingdomain.ErrNotFound
		}
		if found.Paid {
			bill = found
			return nil
		}

		now := s.clock.Now()
		found.Paid = true
		found.PaidAt = &now
		found.UpdatedAt = now
		if err := s.repo.Update(ctx, tx, found); err != nil {
			return err
		}
		bill = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

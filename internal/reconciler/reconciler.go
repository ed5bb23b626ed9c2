// Package reconciler periodically rebuilds bills from the reading log.
// Readings are the source of truth; bills are a derived projection, so any
// drift left behind by an aggregation failure is repaired on the next pass.
package reconciler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/observability/metrics"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/pricing"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/ratelimit"
	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
)

var ErrInvalidPeriod = errors.New("invalid_period")

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    readingdomain.Repository
	Meters  meterdomain.Service
	Billing billingdomain.Service
	Limiter *ratelimit.ReadingIngestLimiter `optional:"true"`
	Metrics *metrics.Metrics                `optional:"true"`
}

type Reconciler struct {
	cfg     config.ReconcileConfig
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    readingdomain.Repository
	meters  meterdomain.Service
	billing billingdomain.Service
	limiter *ratelimit.ReadingIngestLimiter
	metrics *metrics.Metrics
}

func New(p Params) *Reconciler {
	return &Reconciler{
		cfg:     p.Config.Reconcile,
		db:      p.DB,
		log:     p.Log.Named("reconciler"),
		clock:   p.Clock,
		repo:    p.Repo,
		meters:  p.Meters,
		billing: p.Billing,
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

// RunForever reconciles on the configured interval until ctx is cancelled.
func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.RunOnce(ctx); err != nil {
			r.log.Warn("reconciliation run failed", zap.Error(err))
		}
	}
}

// RunOnce rebuilds bills for the current and previous calendar months. The
// redis lock keeps concurrent instances from doing the same work twice; the
// pass itself is idempotent either way.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	token, acquired, err := r.limiter.TryLockReconcile(ctx, r.cfg.Interval)
	if err != nil {
		r.log.Warn("reconcile lock unavailable, proceeding", zap.Error(err))
	} else if !acquired {
		r.metrics.RecordReconcileRun(ctx, "skipped")
		return nil
	}
	if acquired {
		defer func() {
			_ = r.limiter.ReleaseReconcile(ctx, token)
		}()
	}

	now := r.clock.Now().UTC()
	current := monthOf(now)
	previous := monthOf(now.AddDate(0, -1, 0))

	var firstErr error
	for _, period := range []period{previous, current} {
		applied, err := r.ReconcilePeriod(ctx, period.start, period.end)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if applied > 0 {
			r.log.Info("reconciled period",
				zap.Time("period_start", period.start),
				zap.Time("period_end", period.end),
				zap.Int("contributions", applied),
			)
		}
	}

	if firstErr != nil {
		r.metrics.RecordReconcileRun(ctx, "error")
		return firstErr
	}
	r.metrics.RecordReconcileRun(ctx, "ok")
	return nil
}

// ReconcilePeriod re-applies the latest costed reading of every meter in the
// exact period. Aggregation replaces per-type contributions, so re-applying
// converges bills to the reading log without double-charging.
func (r *Reconciler) ReconcilePeriod(ctx context.Context, periodStart, periodEnd time.Time) (int, error) {
	if periodStart.IsZero() || periodEnd.IsZero() || !periodStart.Before(periodEnd) {
		return 0, ErrInvalidPeriod
	}

	readings, err := r.repo.LatestPerMeterInPeriod(ctx, r.db, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}

	applied := 0
	var firstErr error
	for _, reading := range readings {
		if err := r.apply(ctx, reading); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			r.log.Error("failed to re-apply reading",
				zap.String("reading_id", reading.ID.String()),
				zap.Error(err),
			)
			continue
		}
		applied++
	}
	return applied, firstErr
}

func (r *Reconciler) apply(ctx context.Context, reading *readingdomain.MeterReading) error {
	meter, err := r.meters.GetByID(ctx, reading.MeterID)
	if err != nil {
		return err
	}

	cost, err := pricing.Cost(meter.UtilityType, *reading.Consumption, meter.PricePerUnit)
	if err != nil {
		return err
	}

	previous := reading.Value.Sub(*reading.Consumption)
	_, err = r.billing.Aggregate(ctx, billingdomain.AggregateRequest{
		LeaseID:         *reading.LeaseID,
		UtilityType:     meter.UtilityType,
		PeriodStart:     reading.PeriodStart,
		PeriodEnd:       reading.PeriodEnd,
		Consumption:     reading.Consumption,
		Cost:            cost,
		PreviousReading: &previous,
		CurrentReading:  reading.Value,
		ReadingID:       reading.ID,
		Currency:        meter.Currency,
	})
	return err
}

type period struct {
	start time.Time
	end   time.Time
}

func monthOf(at time.Time) period {
	start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	return period{start: start, end: start.AddDate(0, 1, 0).AddDate(0, 0, -1)}
}

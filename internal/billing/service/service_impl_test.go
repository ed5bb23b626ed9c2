package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/billing/repository"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/config"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/observability/metrics"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	// SQLite support hack: remove FOR UPDATE clauses
	stripForUpdate := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if strings.Contains(sql, "FOR UPDATE") {
			newSQL := strings.ReplaceAll(sql, "FOR UPDATE", "")
			d.Statement.SQL.Reset()
			d.Statement.SQL.WriteString(newSQL)
		}
	}
	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripForUpdate)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripForUpdate)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(`
		CREATE TABLE bills (
			id INTEGER PRIMARY KEY,
			lease_id INTEGER NOT NULL,
			category TEXT NOT NULL,
			description TEXT,
			amount DECIMAL NOT NULL,
			currency TEXT NOT NULL,
			period_start DATETIME NOT NULL,
			period_end DATETIME NOT NULL,
			due_date DATETIME NOT NULL,
			paid BOOLEAN NOT NULL DEFAULT 0,
			paid_at DATETIME,
			breakdown TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (lease_id, category, period_start, period_end)
		)`).Error; err != nil {
		t.Fatalf("failed to create bills table: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (billingdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := newTestDB(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := New(Params{
		Config: config.Config{Billing: config.BillingConfig{GraceDays: 15, Currency: "RON"}},
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  fakeClock,
		Repo:   repository.Provide(),
	})
	return svc, db, fakeClock
}

func newMeteredService(t *testing.T) (billingdomain.Service, *sdkmetric.ManualReader) {
	t.Helper()

	db := newTestDB(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := metrics.New(metrics.Config{}, provider)
	if err != nil {
		t.Fatalf("failed to build metrics: %v", err)
	}

	svc := New(Params{
		Config:  config.Config{Billing: config.BillingConfig{GraceDays: 15, Currency: "RON"}},
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   fakeClock,
		Repo:    repository.Provide(),
		Metrics: m,
	})
	return svc, reader
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s is not an int64 sum", name)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func billCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Raw(`SELECT COUNT(*) FROM bills`).Scan(&count).Error; err != nil {
		t.Fatalf("failed to count bills: %v", err)
	}
	return count
}

func electricityRequest(t *testing.T, leaseID snowflake.ID) billingdomain.AggregateRequest {
	return billingdomain.AggregateRequest{
		LeaseID:         leaseID,
		UtilityType:     meterdomain.UtilityElectricity,
		PeriodStart:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:       time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Consumption:     decPtr(t, "100"),
		Cost:            dec(t, "65.00"),
		PreviousReading: decPtr(t, "1000"),
		CurrentReading:  dec(t, "1100"),
		Currency:        "RON",
	}
}

func TestAggregate_CreatesBillOnFirstContribution(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	bill, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))

	assert.NoError(t, err)
	if assert.NotNil(t, bill) {
		assert.Equal(t, leaseID, bill.LeaseID)
		assert.Equal(t, billingdomain.CategoryUtilities, bill.Category)
		assert.True(t, bill.Amount.Equal(dec(t, "65.00")), "amount %s", bill.Amount)
		assert.Equal(t, "RON", bill.Currency)
		assert.False(t, bill.Paid)
		assert.Equal(t, time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC), bill.DueDate)

		entry, ok := bill.Breakdown.Data()[meterdomain.UtilityElectricity]
		if assert.True(t, ok, "missing electricity breakdown entry") {
			assert.True(t, entry.Consumption.Equal(dec(t, "100")))
			assert.True(t, entry.Cost.Equal(dec(t, "65.00")))
			assert.True(t, entry.PreviousReading.Equal(dec(t, "1000")))
			assert.True(t, entry.CurrentReading.Equal(dec(t, "1100")))
		}
	}
	assert.EqualValues(t, 1, billCount(t, db))
}

func TestAggregate_SameMeterCorrectionSupersedes(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	_, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))
	assert.NoError(t, err)

	correction := electricityRequest(t, leaseID)
	correction.Consumption = decPtr(t, "20")
	correction.Cost = dec(t, "13.00")
	correction.CurrentReading = dec(t, "1020")

	bill, err := svc.Aggregate(ctx, correction)

	assert.NoError(t, err)
	if assert.NotNil(t, bill) {
		assert.True(t, bill.Amount.Equal(dec(t, "13.00")), "amount %s", bill.Amount)

		breakdown := bill.Breakdown.Data()
		assert.Len(t, breakdown, 1)
		assert.True(t, breakdown[meterdomain.UtilityElectricity].Cost.Equal(dec(t, "13.00")))
		assert.True(t, bill.Amount.Equal(breakdown.Total()))
	}
	assert.EqualValues(t, 1, billCount(t, db))
}

func TestAggregate_RepeatedSubmissionIsIdempotent(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	for i := 0; i < 3; i++ {
		bill, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))
		assert.NoError(t, err)
		if assert.NotNil(t, bill) {
			assert.True(t, bill.Amount.Equal(dec(t, "65.00")), "amount %s after submission %d", bill.Amount, i+1)
		}
	}
	assert.EqualValues(t, 1, billCount(t, db))
}

func TestAggregate_CrossUtilityMergesIntoOneBill(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	_, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))
	assert.NoError(t, err)

	water := electricityRequest(t, leaseID)
	water.UtilityType = meterdomain.UtilityWater
	water.Consumption = decPtr(t, "10")
	water.Cost = dec(t, "25.00")
	water.PreviousReading = decPtr(t, "500")
	water.CurrentReading = dec(t, "510")

	bill, err := svc.Aggregate(ctx, water)

	assert.NoError(t, err)
	if assert.NotNil(t, bill) {
		assert.True(t, bill.Amount.Equal(dec(t, "90.00")), "amount %s", bill.Amount)
		assert.Len(t, bill.Breakdown.Data(), 2)
	}
	assert.EqualValues(t, 1, billCount(t, db))
}

func TestAggregate_BaselineReadingCreatesNoBill(t *testing.T) {
	svc, db, _ := newTestService(t)

	req := electricityRequest(t, 42)
	req.Consumption = nil
	req.Cost = decimal.Zero
	req.PreviousReading = nil

	bill, err := svc.Aggregate(context.Background(), req)

	assert.NoError(t, err)
	assert.Nil(t, bill)
	assert.EqualValues(t, 0, billCount(t, db))
}

func TestAggregate_ZeroCostCreatesNoBill(t *testing.T) {
	svc, db, _ := newTestService(t)

	req := electricityRequest(t, 42)
	req.Consumption = decPtr(t, "0")
	req.Cost = decimal.Zero
	req.CurrentReading = dec(t, "1000")

	bill, err := svc.Aggregate(context.Background(), req)

	assert.NoError(t, err)
	assert.Nil(t, bill)
	assert.EqualValues(t, 0, billCount(t, db))
}

func TestAggregate_ZeroCostCorrectsExistingEntry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Aggregate(ctx, electricityRequest(t, 42))
	assert.NoError(t, err)

	correction := electricityRequest(t, 42)
	correction.Consumption = decPtr(t, "0")
	correction.Cost = decimal.Zero
	correction.CurrentReading = dec(t, "1000")

	bill, err := svc.Aggregate(ctx, correction)

	assert.NoError(t, err)
	if assert.NotNil(t, bill) {
		assert.True(t, bill.Amount.IsZero(), "amount %s", bill.Amount)
		assert.True(t, bill.Breakdown.Data()[meterdomain.UtilityElectricity].Cost.IsZero())
	}
}

func TestAggregate_ZeroCostNoOpIsNotCountedAsMerge(t *testing.T) {
	svc, reader := newMeteredService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	_, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))
	assert.NoError(t, err)
	assert.EqualValues(t, 1, counterValue(t, reader, "rentalmanager_bills_created_total"))

	// Zero cost for a utility the bill has no entry for leaves it untouched.
	flat := electricityRequest(t, leaseID)
	flat.UtilityType = meterdomain.UtilityWater
	flat.Consumption = decPtr(t, "0")
	flat.Cost = decimal.Zero
	flat.PreviousReading = decPtr(t, "500")
	flat.CurrentReading = dec(t, "500")

	bill, err := svc.Aggregate(ctx, flat)
	assert.NoError(t, err)
	if assert.NotNil(t, bill) {
		assert.Len(t, bill.Breakdown.Data(), 1)
		assert.True(t, bill.Amount.Equal(dec(t, "65.00")), "amount %s", bill.Amount)
	}
	assert.EqualValues(t, 0, counterValue(t, reader, "rentalmanager_bills_merged_total"))
	assert.EqualValues(t, 1, counterValue(t, reader, "rentalmanager_bills_created_total"))

	water := electricityRequest(t, leaseID)
	water.UtilityType = meterdomain.UtilityWater
	water.Consumption = decPtr(t, "10")
	water.Cost = dec(t, "25.00")
	water.PreviousReading = decPtr(t, "500")
	water.CurrentReading = dec(t, "510")

	_, err = svc.Aggregate(ctx, water)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, counterValue(t, reader, "rentalmanager_bills_merged_total"))
}

func TestAggregate_RejectsInvalidPeriod(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := electricityRequest(t, 42)
	req.PeriodEnd = req.PeriodStart

	_, err := svc.Aggregate(context.Background(), req)
	assert.ErrorIs(t, err, billingdomain.ErrInvalidPeriod)
}

func TestMarkPaid_Idempotent(t *testing.T) {
	svc, _, fakeClock := newTestService(t)
	ctx := context.Background()

	created, err := svc.Aggregate(ctx, electricityRequest(t, 42))
	assert.NoError(t, err)

	fakeClock.Advance(24 * time.Hour)

	paid, err := svc.MarkPaid(ctx, created.ID)
	assert.NoError(t, err)
	if assert.NotNil(t, paid) {
		assert.True(t, paid.Paid)
		if assert.NotNil(t, paid.PaidAt) {
			firstPaidAt := *paid.PaidAt

			fakeClock.Advance(24 * time.Hour)
			again, err := svc.MarkPaid(ctx, created.ID)
			assert.NoError(t, err)
			assert.True(t, again.Paid)
			assert.True(t, firstPaidAt.Equal(*again.PaidAt))
		}
	}
}

func TestMarkPaid_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.MarkPaid(context.Background(), snowflake.ID(999))
	assert.ErrorIs(t, err, billingdomain.ErrNotFound)
}

func TestList_FiltersByPaid(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	leaseID := snowflake.ID(42)

	june, err := svc.Aggregate(ctx, electricityRequest(t, leaseID))
	assert.NoError(t, err)

	july := electricityRequest(t, leaseID)
	july.PeriodStart = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	july.PeriodEnd = time.Date(2024, 7, 31, 0, 0, 0, 0, time.UTC)
	_, err = svc.Aggregate(ctx, july)
	assert.NoError(t, err)

	_, err = svc.MarkPaid(ctx, june.ID)
	assert.NoError(t, err)

	unpaid := false
	bills, err := svc.List(ctx, billingdomain.ListRequest{LeaseID: leaseID.String(), Paid: &unpaid})
	assert.NoError(t, err)
	if assert.Len(t, bills, 1) {
		assert.True(t, july.PeriodStart.Equal(bills[0].PeriodStart))
	}

	all, err := svc.List(ctx, billingdomain.ListRequest{LeaseID: leaseID.String()})
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}

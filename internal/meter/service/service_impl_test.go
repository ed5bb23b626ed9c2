package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/clock"
	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/internal/meter/repository"
)

func newTestService(t *testing.T) (meterdomain.Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(`
		CREATE TABLE meters (
			id INTEGER PRIMARY KEY,
			property_id INTEGER NOT NULL,
			utility_type TEXT NOT NULL,
			price_per_unit DECIMAL NOT NULL,
			currency TEXT NOT NULL,
			serial_number TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (property_id, serial_number)
		)`).Error; err != nil {
		t.Fatalf("failed to create meters table: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(db),
	})
	return svc, db
}

func TestCreateMeter(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meter, err := svc.Create(ctx, meterdomain.CreateRequest{
		PropertyID:   "1001",
		UtilityType:  "electricity",
		PricePerUnit: "0.65",
		Currency:     "ron",
		SerialNumber: "EL-2024-0001",
	})
	assert.NoError(t, err)
	assert.Equal(t, meterdomain.UtilityElectricity, meter.UtilityType)
	assert.Equal(t, "0.65", meter.PricePerUnit.String())
	assert.Equal(t, "RON", meter.Currency)
	assert.True(t, meter.Active)
}

func TestCreateMeterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  meterdomain.CreateRequest
		want error
	}{
		{
			name: "unknown utility type",
			req:  meterdomain.CreateRequest{PropertyID: "1001", UtilityType: "steam", PricePerUnit: "1", Currency: "RON", SerialNumber: "S1"},
			want: meterdomain.ErrInvalidUtilityType,
		},
		{
			name: "zero price",
			req:  meterdomain.CreateRequest{PropertyID: "1001", UtilityType: "water", PricePerUnit: "0", Currency: "RON", SerialNumber: "S1"},
			want: meterdomain.ErrInvalidPrice,
		},
		{
			name: "negative price",
			req:  meterdomain.CreateRequest{PropertyID: "1001", UtilityType: "water", PricePerUnit: "-2.5", Currency: "RON", SerialNumber: "S1"},
			want: meterdomain.ErrInvalidPrice,
		},
		{
			name: "missing serial",
			req:  meterdomain.CreateRequest{PropertyID: "1001", UtilityType: "water", PricePerUnit: "2.5", Currency: "RON"},
			want: meterdomain.ErrInvalidSerial,
		},
		{
			name: "missing property",
			req:  meterdomain.CreateRequest{UtilityType: "water", PricePerUnit: "2.5", Currency: "RON", SerialNumber: "S1"},
			want: meterdomain.ErrInvalidProperty,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateMeterDuplicateSerial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := meterdomain.CreateRequest{
		PropertyID:   "1001",
		UtilityType:  "gas",
		PricePerUnit: "1.80",
		Currency:     "RON",
		SerialNumber: "GA-2024-0001",
	}
	_, err := svc.Create(ctx, req)
	assert.NoError(t, err)

	_, err = svc.Create(ctx, req)
	assert.ErrorIs(t, err, meterdomain.ErrDuplicateSerial)

	// Same serial on another property is fine.
	req.PropertyID = "1002"
	_, err = svc.Create(ctx, req)
	assert.NoError(t, err)
}

func TestUpdateMeterPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meter, err := svc.Create(ctx, meterdomain.CreateRequest{
		PropertyID:   "1001",
		UtilityType:  "water",
		PricePerUnit: "2.50",
		Currency:     "RON",
		SerialNumber: "WA-2024-0001",
	})
	assert.NoError(t, err)

	updated, err := svc.UpdatePrice(ctx, meterdomain.UpdatePriceRequest{
		ID:           meter.ID.String(),
		PricePerUnit: "2.75",
	})
	assert.NoError(t, err)
	assert.Equal(t, "2.75", updated.PricePerUnit.String())

	stored, err := svc.GetByID(ctx, meter.ID)
	assert.NoError(t, err)
	assert.Equal(t, "2.75", stored.PricePerUnit.String())
}

func TestUpdateMeterPriceNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdatePrice(context.Background(), meterdomain.UpdatePriceRequest{
		ID:           "424242",
		PricePerUnit: "3.10",
	})
	assert.ErrorIs(t, err, meterdomain.ErrNotFound)
}

func TestListMetersByProperty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, serial := range []string{"A-1", "A-2"} {
		_, err := svc.Create(ctx, meterdomain.CreateRequest{
			PropertyID:   "1001",
			UtilityType:  "electricity",
			PricePerUnit: "0.65",
			Currency:     "RON",
			SerialNumber: serial,
		})
		assert.NoError(t, err)
	}
	_, err := svc.Create(ctx, meterdomain.CreateRequest{
		PropertyID:   "2002",
		UtilityType:  "water",
		PricePerUnit: "2.50",
		Currency:     "RON",
		SerialNumber: "B-1",
	})
	assert.NoError(t, err)

	meters, err := svc.List(ctx, "1001")
	assert.NoError(t, err)
	assert.Len(t, meters, 2)
}

// Package seed bootstraps development fixtures so a fresh checkout can
// exercise the reading pipeline without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
)

const (
	devPropertyName    = "Str. Aviatorilor 12, Ap. 4"
	devPropertyAddress = "Str. Aviatorilor 12, Ap. 4, Bucharest"
	devCurrency        = "RON"
)

// EnsureDevFixtures seeds one property with an active lease and a meter per
// utility type. Idempotent across restarts.
func EnsureDevFixtures(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		property, err := ensureProperty(ctx, tx, node)
		if err != nil {
			return err
		}
		if err := ensureLease(ctx, tx, node, property.ID); err != nil {
			return err
		}
		return ensureMeters(ctx, tx, node, property.ID)
	})
}

func ensureProperty(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*propertydomain.Property, error) {
	var property propertydomain.Property
	err := tx.WithContext(ctx).
		Where("name = ?", devPropertyName).
		First(&property).Error
	if err == nil {
		return &property, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	property = propertydomain.Property{
		ID:        node.Generate(),
		OwnerID:   node.Generate(),
		Name:      devPropertyName,
		Address:   devPropertyAddress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func ensureLease(ctx context.Context, tx *gorm.DB, node *snowflake.Node, propertyID snowflake.ID) error {
	var lease propertydomain.Lease
	err := tx.WithContext(ctx).
		Where("property_id = ? AND active = ?", propertyID, true).
		First(&lease).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	lease = propertydomain.Lease{
		ID:         node.Generate(),
		PropertyID: propertyID,
		TenantID:   node.Generate(),
		StartDate:  now.AddDate(0, -1, 0),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&lease).Error
}

func ensureMeters(ctx context.Context, tx *gorm.DB, node *snowflake.Node, propertyID snowflake.ID) error {
	defaults := []struct {
		utility meterdomain.UtilityType
		price   string
		serial  string
	}{
		{meterdomain.UtilityElectricity, "0.65", "DEV-EL-0001"},
		{meterdomain.UtilityWater, "2.50", "DEV-WA-0001"},
		{meterdomain.UtilityGas, "1.80", "DEV-GA-0001"},
	}

	for _, def := range defaults {
		var meter meterdomain.Meter
		err := tx.WithContext(ctx).
			Where("property_id = ? AND utility_type = ?", propertyID, def.utility).
			First(&meter).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		price, err := decimal.NewFromString(def.price)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		meter = meterdomain.Meter{
			ID:           node.Generate(),
			PropertyID:   propertyID,
			UtilityType:  def.utility,
			PricePerUnit: price,
			Currency:     devCurrency,
			SerialNumber: def.serial,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&meter).Error; err != nil {
			return err
		}
	}
	return nil
}

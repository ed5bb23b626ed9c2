package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/option"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/repository"
)

type repo struct {
	store repository.Repository[meterdomain.Meter]
}

func Provide(db *gorm.DB) meterdomain.Repository {
	return &repo{store: repository.ProvideStore[meterdomain.Meter](db)}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *meterdomain.Meter) error {
	return r.store.WithTrx(db).Create(ctx, m)
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, m *meterdomain.Meter) error {
	return r.store.WithTrx(db).Update(ctx, m.ID.String(), map[string]any{
		"price_per_unit": m.PricePerUnit,
		"updated_at":     m.UpdatedAt,
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*meterdomain.Meter, error) {
	return r.store.WithTrx(db).FindOne(ctx, &meterdomain.Meter{ID: id})
}

func (r *repo) List(ctx context.Context, db *gorm.DB, propertyID snowflake.ID) ([]meterdomain.Meter, error) {
	rows, err := r.store.WithTrx(db).Find(ctx,
		&meterdomain.Meter{PropertyID: propertyID},
		option.WithSortBy("created_at", "asc", map[string]bool{"created_at": true}),
	)
	if err != nil {
		return nil, err
	}

	meters := make([]meterdomain.Meter, 0, len(rows))
	for _, row := range rows {
		meters = append(meters, *row)
	}
	return meters, nil
}

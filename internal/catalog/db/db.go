package db

import (
	"context"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// DB exposes read-only catalog queries. The catalog itself is owned by
// the marketplace backend; this service only reads what checkout needs.
type DB struct {
	Bun *bun.DB
}

func (d *DB) GetTravelDeal(ctx context.Context, id string) (*models.TravelDeal, error) {
	var deal models.TravelDeal
	err := d.Bun.NewSelect().
		Model(&deal).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

func (d *DB) GetTravelDealBySlug(ctx context.Context, slug string) (*models.TravelDeal, error) {
	var deal models.TravelDeal
	err := d.Bun.NewSelect().
		Model(&deal).
		Where("slug = ?", slug).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// ListDateOptions returns a deal's departures ordered by start date.
func (d *DB) ListDateOptions(ctx context.Context, dealID string) ([]models.DateOption, error) {
	var options []models.DateOption
	err := d.Bun.NewSelect().
		Model(&options).
		Where("travel_deal_id = ?", dealID).
		Order("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if options == nil {
		options = []models.DateOption{}
	}
	return options, nil
}

func (d *DB) GetDateOption(ctx context.Context, id string) (*models.DateOption, error) {
	var option models.DateOption
	err := d.Bun.NewSelect().
		Model(&option).
		Relation("TravelDeal").
		Where("date_option.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &option, nil
}

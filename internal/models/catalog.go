package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TravelDeal struct {
	bun.BaseModel `bun:"table:travel_deals"`

	ID            string    `bun:"id,pk" json:"id"`
	Slug          string    `bun:"slug,unique,notnull" json:"slug"`
	Title         string    `bun:"title,notnull" json:"title"`
	Days          int       `bun:"days,notnull" json:"days"`
	Country       string    `bun:"country,notnull" json:"country"`
	StartLocation string    `bun:"start_location,nullzero" json:"start_location,omitempty"`
	EndLocation   string    `bun:"end_location,nullzero" json:"end_location,omitempty"`
	ImageURL      string    `bun:"image_url,nullzero" json:"image_url,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// DateOption is one scheduled departure/return instance of a TravelDeal.
// DiscountedPrice is kept as the raw catalog string (currency-prefixed,
// e.g. "€ 1,250.00") and must go through pricing.ParseAmount before use.
type DateOption struct {
	bun.BaseModel `bun:"table:date_options"`

	ID              string    `bun:"id,pk" json:"id"`
	TravelDealID    string    `bun:"travel_deal_id,notnull" json:"travel_deal_id"`
	StartDate       time.Time `bun:"start_date,notnull" json:"start_date"`
	EndDate         time.Time `bun:"end_date,notnull" json:"end_date"`
	DiscountedPrice string    `bun:"discounted_price,notnull" json:"discounted_price"`
	Capacity        int       `bun:"capacity,notnull" json:"capacity"`

	TravelDeal *TravelDeal `bun:"rel:belongs-to,join:travel_deal_id=id" json:"travel_deal,omitempty"`
}

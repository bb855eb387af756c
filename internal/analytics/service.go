package analytics

import (
	"context"

	"ms-booking/internal/models"

	"github.com/uptrace/bun"
)

// Service computes booking and revenue aggregates.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// DealAnalytics represents aggregated booking data for a travel deal
type DealAnalytics struct {
	TravelDealID     string             `json:"travel_deal_id"`
	TotalRevenue     float64            `json:"total_revenue"`
	TotalBookings    int                `json:"total_bookings"`
	TotalTravellers  int                `json:"total_travellers"`
	DailySales       []DailySales       `json:"daily_sales"`
	SalesByDate      []DateOptionSales  `json:"sales_by_date_option"`
}

// DateOptionSales contains sales metrics for one departure date
type DateOptionSales struct {
	DateOptionID string  `json:"date_option_id"`
	Bookings     int     `json:"bookings"`
	Travellers   int     `json:"travellers"`
	Revenue      float64 `json:"revenue"`
}

// DailySales contains metrics for a single day
type DailySales struct {
	Date       string  `json:"date"`
	Revenue    float64 `json:"revenue"`
	Bookings   int     `json:"bookings"`
	Travellers int     `json:"travellers"`
}

// GetDealAnalytics returns revenue analytics for a travel deal,
// optionally filtered by booking status.
func (s *Service) GetDealAnalytics(ctx context.Context, dealID string, status string) (*DealAnalytics, error) {
	var bookings []models.Booking
	query := s.db.NewSelect().
		Model(&bookings).
		Where("travel_deal_id = ?", dealID)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	result := &DealAnalytics{
		TravelDealID: dealID,
		DailySales:   []DailySales{},
		SalesByDate:  []DateOptionSales{},
	}

	daily := make(map[string]*DailySales)
	byDate := make(map[string]*DateOptionSales)

	for _, b := range bookings {
		result.TotalRevenue += b.TotalAmount
		result.TotalBookings++
		result.TotalTravellers += b.Travellers

		day := b.CreatedAt.Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = &DailySales{Date: day}
		}
		daily[day].Revenue += b.TotalAmount
		daily[day].Bookings++
		daily[day].Travellers += b.Travellers

		if byDate[b.DateOptionID] == nil {
			byDate[b.DateOptionID] = &DateOptionSales{DateOptionID: b.DateOptionID}
		}
		byDate[b.DateOptionID].Bookings++
		byDate[b.DateOptionID].Travellers += b.Travellers
		byDate[b.DateOptionID].Revenue += b.TotalAmount
	}

	for _, d := range daily {
		result.DailySales = append(result.DailySales, *d)
	}
	for _, d := range byDate {
		result.SalesByDate = append(result.SalesByDate, *d)
	}

	return result, nil
}

// DateOptionAnalytics returns sales and remaining capacity for one
// departure date.
type DateOptionAnalytics struct {
	DateOptionID      string  `json:"date_option_id"`
	Bookings          int     `json:"bookings"`
	Travellers        int     `json:"travellers"`
	Revenue           float64 `json:"revenue"`
	RemainingCapacity int     `json:"remaining_capacity"`
}

func (s *Service) GetDateOptionAnalytics(ctx context.Context, dateOptionID string, status string) (*DateOptionAnalytics, error) {
	var bookings []models.Booking
	query := s.db.NewSelect().
		Model(&bookings).
		Where("date_option_id = ?", dateOptionID)

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	result := &DateOptionAnalytics{DateOptionID: dateOptionID}
	for _, b := range bookings {
		result.Bookings++
		result.Travellers += b.Travellers
		result.Revenue += b.TotalAmount
	}

	var option models.DateOption
	err := s.db.NewSelect().
		Model(&option).
		Where("id = ?", dateOptionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	result.RemainingCapacity = option.Capacity

	return result, nil
}

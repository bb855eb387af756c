package booking_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	"ms-booking/internal/booking/db"
	"ms-booking/internal/config"
	"ms-booking/internal/invoice"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/pricing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateBooking(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockDBLayer) GetBookingByID(id string) (*models.Booking, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockDBLayer) GetBookingsByUserID(userID string) ([]models.Booking, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockDBLayer) UpdateExtras(b models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockDBLayer) UpdatePayment(id string, update models.PaymentUpdate, paidAt time.Time) (int64, error) {
	args := m.Called(id, update, paidAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDBLayer) CancelBooking(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockDBLayer) GetDateOption(id string) (*models.DateOption, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DateOption), args.Error(1)
}

func (m *MockDBLayer) GetTravelDeal(id string) (*models.TravelDeal, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TravelDeal), args.Error(1)
}

func (m *MockDBLayer) DecrementCapacity(id string, places int) error {
	args := m.Called(id, places)
	return args.Error(0)
}

func (m *MockDBLayer) IncrementCapacity(id string, places int) error {
	args := m.Called(id, places)
	return args.Error(0)
}

func (m *MockDBLayer) InsertReconciliationEntry(entry db.ReconciliationEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

type MockCapacityHold struct {
	mock.Mock
}

func (m *MockCapacityHold) HoldPlaces(ctx context.Context, dateOptionID, bookingID string, travellers int) (bool, error) {
	args := m.Called(dateOptionID, bookingID, travellers)
	return args.Bool(0), args.Error(1)
}

func (m *MockCapacityHold) ReleaseHold(ctx context.Context, dateOptionID, bookingID string) error {
	args := m.Called(dateOptionID, bookingID)
	return args.Error(0)
}

func (m *MockCapacityHold) HeldPlaces(ctx context.Context, dateOptionID string) (int, error) {
	args := m.Called(dateOptionID)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingCreated(event models.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishBookingUpdated(event models.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishBookingConfirmed(event models.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishBookingCanceled(event models.BookingEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentSuccess(event models.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockPublisher) PublishPaymentFailed(event models.PaymentEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendConfirmation(b *models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockMailer) SendCancellation(b *models.Booking) error {
	args := m.Called(b)
	return args.Error(0)
}

type testEnv struct {
	db     *MockDBLayer
	hold   *MockCapacityHold
	router chi.Router
}

// newTestRouter wires the handler behind a middleware that injects the
// authenticated user, mirroring what the OIDC middleware does in prod.
func newTestRouter(t *testing.T, userID string) *testEnv {
	t.Helper()

	mockDB := new(MockDBLayer)
	mockHold := new(MockCapacityHold)
	mockKafka := new(MockPublisher)
	mockMailer := new(MockMailer)
	mockKafka.On("PublishBookingCreated", mock.Anything).Return(nil).Maybe()
	mockKafka.On("PublishBookingUpdated", mock.Anything).Return(nil).Maybe()
	mockKafka.On("PublishBookingConfirmed", mock.Anything).Return(nil).Maybe()
	mockKafka.On("PublishBookingCanceled", mock.Anything).Return(nil).Maybe()
	mockKafka.On("PublishPaymentSuccess", mock.Anything).Return(nil).Maybe()
	mockKafka.On("PublishPaymentFailed", mock.Anything).Return(nil).Maybe()
	mockMailer.On("SendConfirmation", mock.Anything).Return(nil).Maybe()
	mockMailer.On("SendCancellation", mock.Anything).Return(nil).Maybe()

	engine := pricing.NewEngine(config.PricingConfig{
		PrivateRoomPerTraveller: 345,
		DonationAmount:          23,
	})
	log := logger.NewLogger()
	service := booking.NewService(mockDB, mockHold, mockKafka, mockMailer, engine, log)
	handler := booking_api.NewHandler(service, invoice.NewGenerator("Travelly", "EUR"), log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	handler.RegisterRoutes(r)

	return &testEnv{db: mockDB, hold: mockHold, router: r}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func validRequest() models.BookingRequest {
	return models.BookingRequest{
		TravelDealID: "deal-1",
		DateOptionID: "date-1",
		FirstName:    "Maya",
		LastName:     "Lindqvist",
		Email:        "maya@example.com",
		Travellers:   2,
		RoomOption:   models.RoomPrivate,
		Donation:     true,
	}
}

func availableOption() *models.DateOption {
	return &models.DateOption{
		ID:              "date-1",
		TravelDealID:    "deal-1",
		DiscountedPrice: "€ 1,250.00",
		Capacity:        10,
	}
}

func TestCreateBooking_Created(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetDateOption", "date-1").Return(availableOption(), nil)
	env.hold.On("HeldPlaces", "date-1").Return(0, nil)
	env.hold.On("HoldPlaces", "date-1", mock.Anything, 2).Return(true, nil)
	env.db.On("CreateBooking", mock.Anything).Return(nil)

	rec := env.do(http.MethodPost, "/api/bookings", validRequest())

	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, models.BookingPending, created.Status)
	assert.Equal(t, 1963.0, created.TotalAmount)
}

func TestCreateBooking_ValidationFailure(t *testing.T) {
	env := newTestRouter(t, "user-1")

	req := validRequest()
	req.Email = "not-an-email"
	rec := env.do(http.MethodPost, "/api/bookings", req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.db.AssertNotCalled(t, "CreateBooking", mock.Anything)
}

func TestCreateBooking_CapacityExceededIncludesRemaining(t *testing.T) {
	env := newTestRouter(t, "user-1")

	option := availableOption()
	option.Capacity = 3
	env.db.On("GetDateOption", "date-1").Return(option, nil)
	env.hold.On("HeldPlaces", "date-1").Return(2, nil)

	rec := env.do(http.MethodPost, "/api/bookings", validRequest())

	require.Equal(t, http.StatusConflict, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, float64(1), body["remaining"])
	assert.Equal(t, float64(2), body["requested"])
	env.db.AssertNotCalled(t, "CreateBooking", mock.Anything)
}

func TestGetBooking_NotFound(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "missing").Return(nil, sql.ErrNoRows)

	rec := env.do(http.MethodGet, "/api/bookings/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBooking_ForbiddenForOtherUser(t *testing.T) {
	env := newTestRouter(t, "user-2")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:     "booking-1",
		UserID: "user-1",
		Status: models.BookingPending,
	}, nil)

	rec := env.do(http.MethodGet, "/api/bookings/booking-1", nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateExtras_ConflictWhenConfirmed(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:     "booking-1",
		UserID: "user-1",
		Status: models.BookingConfirmed,
	}, nil)

	travellers := 3
	rec := env.do(http.MethodPatch, "/api/bookings/booking-1/extras", models.ExtrasUpdate{Travellers: &travellers})

	assert.Equal(t, http.StatusConflict, rec.Code)
	env.db.AssertNotCalled(t, "UpdateExtras", mock.Anything)
}

func TestUpdateExtras_OptionalServices(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:           "booking-1",
		UserID:       "user-1",
		TravelDealID: "deal-1",
		DateOptionID: "date-1",
		Travellers:   2,
		RoomOption:   models.RoomPrivate,
		Donation:     true,
		TotalAmount:  1963,
		Status:       models.BookingPending,
	}, nil)
	env.db.On("GetDateOption", "date-1").Return(availableOption(), nil)
	env.hold.On("HeldPlaces", "date-1").Return(2, nil)
	env.db.On("UpdateExtras", mock.MatchedBy(func(b models.Booking) bool {
		return b.AddTransfer && b.AddNights && b.FlightHelp
	})).Return(nil)

	rec := env.do(http.MethodPatch, "/api/bookings/booking-1/extras",
		json.RawMessage(`{"add_transfer":true,"add_nights":true,"flight_help":true}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.AddTransfer)
	assert.True(t, updated.AddNights)
	assert.True(t, updated.FlightHelp)
	assert.Equal(t, 1963.0, updated.TotalAmount)

	env.db.AssertExpectations(t)
}

func TestRecordPayment_AmountMismatch(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:           "booking-1",
		UserID:       "user-1",
		TravelDealID: "deal-1",
		DateOptionID: "date-1",
		Travellers:   2,
		RoomOption:   models.RoomPrivate,
		Donation:     true,
		TotalAmount:  1963,
		Status:       models.BookingPending,
	}, nil)
	env.db.On("GetDateOption", "date-1").Return(availableOption(), nil)

	rec := env.do(http.MethodPut, "/api/bookings/booking-1/payment", models.PaymentUpdate{
		PaymentMethod: models.MethodManual,
		PaymentAmount: 100,
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	env.db.AssertNotCalled(t, "DecrementCapacity", mock.Anything, mock.Anything)
}

func TestRecordPayment_Confirms(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:           "booking-1",
		UserID:       "user-1",
		TravelDealID: "deal-1",
		DateOptionID: "date-1",
		Email:        "maya@example.com",
		Travellers:   2,
		RoomOption:   models.RoomPrivate,
		Donation:     true,
		TotalAmount:  1963,
		Status:       models.BookingPending,
	}, nil)
	env.db.On("GetDateOption", "date-1").Return(availableOption(), nil)
	env.db.On("DecrementCapacity", "date-1", 2).Return(nil)
	env.db.On("UpdatePayment", "booking-1", mock.Anything, mock.Anything).Return(int64(1), nil)
	env.hold.On("ReleaseHold", "date-1", "booking-1").Return(nil)

	rec := env.do(http.MethodPut, "/api/bookings/booking-1/payment", models.PaymentUpdate{
		PaymentMethod: models.MethodManual,
		PaymentAmount: 1963,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var confirmed models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&confirmed))
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.Equal(t, models.PaymentPaid, confirmed.PaymentStatus)
}

func TestCancelBooking_NoContent(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:           "booking-1",
		UserID:       "user-1",
		DateOptionID: "date-1",
		Status:       models.BookingPending,
	}, nil)
	env.db.On("CancelBooking", "booking-1").Return(nil)
	env.hold.On("ReleaseHold", "date-1", "booking-1").Return(nil)

	rec := env.do(http.MethodDelete, "/api/bookings/booking-1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestDownloadInvoice_RequiresPaidBooking(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:            "booking-1",
		UserID:        "user-1",
		Status:        models.BookingPending,
		PaymentStatus: models.PaymentPending,
	}, nil)

	rec := env.do(http.MethodGet, "/api/bookings/booking-1/invoice", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDownloadInvoice_ReturnsPDF(t *testing.T) {
	env := newTestRouter(t, "user-1")

	paidAt := time.Now()
	env.db.On("GetBookingByID", "booking-1").Return(&models.Booking{
		ID:            "booking-1",
		UserID:        "user-1",
		FirstName:     "Maya",
		LastName:      "Lindqvist",
		Email:         "maya@example.com",
		Travellers:    2,
		RoomOption:    models.RoomPrivate,
		TotalAmount:   1963,
		Status:        models.BookingConfirmed,
		PaymentStatus: models.PaymentPaid,
		PaymentMethod: models.MethodManual,
		PaidAt:        &paidAt,
	}, nil)

	rec := env.do(http.MethodGet, "/api/bookings/booking-1/invoice", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-booking-1.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestListBookings_ReturnsOwn(t *testing.T) {
	env := newTestRouter(t, "user-1")

	env.db.On("GetBookingsByUserID", "user-1").Return([]models.Booking{
		{ID: "booking-1", UserID: "user-1"},
		{ID: "booking-2", UserID: "user-1"},
	}, nil)

	rec := env.do(http.MethodGet, "/api/bookings", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var bookings []models.Booking
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&bookings))
	assert.Len(t, bookings, 2)
}

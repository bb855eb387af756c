package checkout_api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/checkout"
	"ms-booking/internal/checkout/checkout_api"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingOps struct {
	mock.Mock
}

func (m *MockBookingOps) CreateBooking(ctx context.Context, userID string, req models.BookingRequest) (*models.Booking, error) {
	args := m.Called(userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingOps) UpdateExtras(ctx context.Context, id, userID string, update models.ExtrasUpdate) (*models.Booking, error) {
	args := m.Called(id, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingOps) GetBooking(id, userID string) (*models.Booking, error) {
	args := m.Called(id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordPayment(ctx context.Context, id, userID string, update models.PaymentUpdate) (*models.Booking, error) {
	args := m.Called(id, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockRecorder) ParkPayment(bookingID string, update models.PaymentUpdate, reason string) error {
	args := m.Called(bookingID, update, reason)
	return args.Error(0)
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:          "booking-1",
		UserID:      "user-1",
		Travellers:  2,
		RoomOption:  models.RoomShared,
		TotalAmount: 1250,
		Status:      models.BookingPending,
	}
}

func newTestRouter(ops *MockBookingOps, recorder *MockRecorder, userID string) chi.Router {
	log := logger.NewLogger()
	dispatcher := checkout.NewDispatcher(recorder, log, checkout.ManualStrategy{})
	handler := checkout_api.NewHandler(ops, dispatcher, log)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	handler.RegisterRoutes(r)
	return r
}

func doFinalize(r chi.Router, bookingID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, "/api/checkout/"+bookingID+"/finalize", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func acceptedRequest() checkout_api.FinalizeRequest {
	return checkout_api.FinalizeRequest{
		Agreements:    models.Agreements{Terms: true, TripInfo: true},
		PaymentMethod: models.MethodManual,
	}
}

func TestFinalize_ConfirmsBooking(t *testing.T) {
	ops := new(MockBookingOps)
	recorder := new(MockRecorder)
	router := newTestRouter(ops, recorder, "user-1")

	ops.On("GetBooking", "booking-1", "user-1").Return(pendingBooking(), nil)

	confirmed := pendingBooking()
	confirmed.Status = models.BookingConfirmed
	recorder.On("RecordPayment", "booking-1", "user-1", mock.MatchedBy(func(u models.PaymentUpdate) bool {
		return u.PaymentMethod == models.MethodManual && u.PaymentAmount == 1250
	})).Return(confirmed, nil)

	rec := doFinalize(router, "booking-1", acceptedRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Step    string         `json:"step"`
		Booking models.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Step)
	assert.Equal(t, models.BookingConfirmed, resp.Booking.Status)
}

func TestFinalize_TermsGate(t *testing.T) {
	ops := new(MockBookingOps)
	recorder := new(MockRecorder)
	router := newTestRouter(ops, recorder, "user-1")

	ops.On("GetBooking", "booking-1", "user-1").Return(pendingBooking(), nil)

	req := acceptedRequest()
	req.Agreements = models.Agreements{Terms: true}
	rec := doFinalize(router, "booking-1", req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	recorder.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalize_AlreadyConfirmed(t *testing.T) {
	ops := new(MockBookingOps)
	router := newTestRouter(ops, new(MockRecorder), "user-1")

	confirmed := pendingBooking()
	confirmed.Status = models.BookingConfirmed
	ops.On("GetBooking", "booking-1", "user-1").Return(confirmed, nil)

	rec := doFinalize(router, "booking-1", acceptedRequest())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFinalize_ForeignBooking(t *testing.T) {
	ops := new(MockBookingOps)
	router := newTestRouter(ops, new(MockRecorder), "user-2")

	ops.On("GetBooking", "booking-1", "user-2").Return(nil, booking.ErrForbidden)

	rec := doFinalize(router, "booking-1", acceptedRequest())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFinalize_UnsupportedMethod(t *testing.T) {
	ops := new(MockBookingOps)
	router := newTestRouter(ops, new(MockRecorder), "user-1")

	ops.On("GetBooking", "booking-1", "user-1").Return(pendingBooking(), nil)

	req := acceptedRequest()
	req.PaymentMethod = models.MethodStripe // not registered on this dispatcher
	rec := doFinalize(router, "booking-1", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFinalize_ValidationRejectsUnknownMethod(t *testing.T) {
	ops := new(MockBookingOps)
	router := newTestRouter(ops, new(MockRecorder), "user-1")

	rec := doFinalize(router, "booking-1", map[string]interface{}{
		"agreements":     map[string]bool{"terms": true, "trip_info": true},
		"payment_method": "bitcoin",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ops.AssertNotCalled(t, "GetBooking", mock.Anything, mock.Anything)
}

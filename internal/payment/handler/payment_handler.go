package handler

import (
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/payment/services"
	"ms-booking/internal/payment/storage"
	"ms-booking/internal/paypal"
	"ms-booking/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BookingReader is the slice of the booking service the gateway needs:
// the charge amount always comes from the stored booking, never from
// the request body.
type BookingReader interface {
	GetBooking(id, userID string) (*models.Booking, error)
}

type PaymentHandler struct {
	stripeService *services.StripeService
	paypalClient  *paypal.Client
	paymentStore  storage.Store
	bookings      BookingReader
	validate      *validator.Validate
	logger        *logger.Logger
}

func NewPaymentHandler(stripeService *services.StripeService, paypalClient *paypal.Client, paymentStore storage.Store, bookings BookingReader, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		stripeService: stripeService,
		paypalClient:  paypalClient,
		paymentStore:  paymentStore,
		bookings:      bookings,
		validate:      validator.New(),
		logger:        log,
	}
}

func (h *PaymentHandler) RegisterRoutes(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api/payments", authMiddleware)
	api.POST("/intent", h.CreateIntent)
	api.POST("/paypal/verify", h.VerifyPayPal)
	api.POST("/refund", h.Refund)
	api.GET("/booking/:bookingID", h.GetByBooking)
}

// CreateIntent opens a Stripe payment intent for a booking and records
// a pending payment row.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req models.IntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	userID := c.GetString("user_id")
	booking, err := h.bookings.GetBooking(req.BookingID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
		return
	}
	if booking.Status != models.BookingPending {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Booking is not payable", fmt.Sprintf("status is %s", booking.Status)))
		return
	}

	// The amount in the request is advisory; the stored total wins.
	if req.Amount != booking.TotalAmount {
		h.logger.Warn("PAYMENT", fmt.Sprintf("intent amount %.2f for booking %s overridden by stored total %.2f", req.Amount, req.BookingID, booking.TotalAmount))
	}

	intent, err := h.stripeService.CreatePaymentIntent(c.Request.Context(), booking.ID, booking.TotalAmount)
	if err != nil {
		c.JSON(http.StatusBadGateway, utils.ErrorResponse("Payment intent creation failed", err.Error()))
		return
	}

	payment := &models.Payment{
		PaymentID:     utils.GeneratePaymentID(),
		BookingID:     booking.ID,
		Method:        models.MethodStripe,
		Status:        models.PaymentPending,
		Amount:        booking.TotalAmount,
		Currency:      req.Currency,
		TransactionID: intent.IntentID,
		CreatedDate:   time.Now(),
	}
	if err := h.paymentStore.SavePayment(payment); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("save payment record for booking %s: %v", booking.ID, err))
	}

	intent.PaymentID = payment.PaymentID
	c.JSON(http.StatusOK, utils.SuccessResponse("Payment intent created", intent))
}

// VerifyPayPal verifies a client-side PayPal capture against the PayPal
// API and reports the captured amount.
func (h *PaymentHandler) VerifyPayPal(c *gin.Context) {
	var req models.PayPalVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	userID := c.GetString("user_id")
	booking, err := h.bookings.GetBooking(req.BookingID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
		return
	}

	amount, err := h.paypalClient.VerifyOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		h.logger.LogPayment("paypal", booking.ID, fmt.Sprintf("verification failed for order %s: %v", req.OrderID, err))
		c.JSON(http.StatusBadGateway, utils.ErrorResponse("PayPal verification failed", err.Error()))
		return
	}

	if amount != booking.TotalAmount {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Amount mismatch",
			fmt.Sprintf("order captured %.2f but booking total is %.2f", amount, booking.TotalAmount)))
		return
	}

	payment := &models.Payment{
		PaymentID:     utils.GeneratePaymentID(),
		BookingID:     booking.ID,
		Method:        models.MethodPayPal,
		Status:        models.PaymentPaid,
		Amount:        amount,
		Currency:      "EUR",
		TransactionID: req.OrderID,
		CreatedDate:   time.Now(),
	}
	if err := h.paymentStore.SavePayment(payment); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("save paypal payment for booking %s: %v", booking.ID, err))
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("PayPal order verified", models.PayPalVerifyResponse{
		OrderID:  req.OrderID,
		Status:   "COMPLETED",
		Amount:   amount,
		Verified: true,
	}))
}

// Refund refunds a Stripe payment in full.
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	payment, err := h.paymentStore.GetPayment(req.PaymentID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Payment not found", err.Error()))
		return
	}
	if payment.Method != models.MethodStripe {
		c.JSON(http.StatusConflict, utils.ErrorResponse("Refund not supported",
			fmt.Sprintf("%s payments are refunded manually", payment.Method)))
		return
	}

	if err := h.stripeService.RefundPayment(payment.TransactionID, req.Reason); err != nil {
		c.JSON(http.StatusBadGateway, utils.ErrorResponse("Refund failed", err.Error()))
		return
	}

	payment.Status = models.PaymentFailed
	if err := h.paymentStore.UpdatePayment(payment); err != nil {
		h.logger.Error("PAYMENT", fmt.Sprintf("update refunded payment %s: %v", payment.PaymentID, err))
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment refunded", payment))
}

// GetByBooking returns the latest payment record for a booking.
func (h *PaymentHandler) GetByBooking(c *gin.Context) {
	bookingID := c.Param("bookingID")

	userID := c.GetString("user_id")
	if _, err := h.bookings.GetBooking(bookingID, userID); err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("Booking not found", err.Error()))
		return
	}

	payment, err := h.paymentStore.GetPaymentByBookingID(bookingID)
	if err != nil {
		c.JSON(http.StatusNotFound, utils.ErrorResponse("No payment for booking", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Payment fetched", payment))
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lease-service/internal/middleware"
	"lease-service/internal/model"
	"lease-service/internal/workflow"
	"lease-service/pkg/database"
	"lease-service/pkg/logger"
)

// CreateBooking opens a lease cycle: booking, unpaid invoice and rental
// case in one step.
func CreateBooking(c echo.Context) error {
	log := logger.FromContext(c)

	var req workflow.CreateBookingInput
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	actor := middleware.ActorFromContext(c)
	bundle, err := workflow.Get().CreateBooking(c.Request().Context(), actor, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Booking created",
		zap.String("booking_id", bundle.Booking.ID),
		zap.String("property_id", bundle.Booking.PropertyID),
		zap.String("invoice_id", bundle.Invoice.ID),
		zap.String("case_id", bundle.Case.ID),
		zap.Float64("amount", bundle.Booking.Amount))
	return c.JSON(http.StatusCreated, bundle)
}

// GetBooking handles retrieving a single booking by ID
func GetBooking(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var booking model.Booking
	if result := database.GetDB().First(&booking, "id = ?", id); result.Error != nil {
		log.Warn("Booking not found", zap.String("booking_id", id))
		return respondError(c, log, workflow.NotFound("booking", id))
	}
	return c.JSON(http.StatusOK, booking)
}

// ListBookings handles retrieving bookings with optional filtering
func ListBookings(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB()
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}
	if tenantID := c.QueryParam("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var bookings []model.Booking
	if result := query.Find(&bookings); result.Error != nil {
		log.Error("Failed to list bookings", zap.Error(result.Error))
		return respondError(c, log, result.Error)
	}
	return c.JSON(http.StatusOK, bookings)
}

// ReviewBooking acknowledges a booking ahead of payment.
func ReviewBooking(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	booking, err := workflow.Get().ReviewBooking(c.Request().Context(), id)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Booking acknowledged", zap.String("booking_id", id))
	return c.JSON(http.StatusOK, booking)
}

// DeclineRequest carries the optional reason for a decline.
type DeclineRequest struct {
	Reason string `json:"reason"`
}

// DeclineBooking declines a pre-confirmed booking and frees the unit.
func DeclineBooking(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req DeclineRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	actor := middleware.ActorFromContext(c)
	booking, err := workflow.Get().DeclineBooking(c.Request().Context(), id, actor, req.Reason)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Booking declined",
		zap.String("booking_id", id),
		zap.String("actor", actor),
		zap.String("reason", req.Reason))
	return c.JSON(http.StatusOK, booking)
}

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

// GetInvoice handles retrieving a single invoice by ID
func GetInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var invoice model.Invoice
	if result := database.GetDB().First(&invoice, "id = ?", id); result.Error != nil {
		log.Warn("Invoice not found", zap.String("invoice_id", id))
		return respondError(c, log, workflow.NotFound("invoice", id))
	}
	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles retrieving invoices with optional filtering
func ListInvoices(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB()
	if reservationID := c.QueryParam("reservation_id"); reservationID != "" {
		query = query.Where("reservation_id = ?", reservationID)
	}
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var invoices []model.Invoice
	if result := query.Find(&invoices); result.Error != nil {
		log.Error("Failed to list invoices", zap.Error(result.Error))
		return respondError(c, log, result.Error)
	}
	return c.JSON(http.StatusOK, invoices)
}

// InvoiceStatusRequest is the explicit settlement call. There is no
// other way an invoice becomes paid.
type InvoiceStatusRequest struct {
	Status model.InvoiceStatus `json:"status"`
}

// UpdateInvoiceStatus marks an invoice paid or canceled. Marking it
// paid confirms the linked booking in the same step.
func UpdateInvoiceStatus(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req InvoiceStatusRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	actor := middleware.ActorFromContext(c)
	invoice, err := workflow.Get().UpdateInvoiceStatus(c.Request().Context(), id, req.Status, actor)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Invoice status updated",
		zap.String("invoice_id", id),
		zap.String("status", string(invoice.Status)),
		zap.String("actor", actor))
	return c.JSON(http.StatusOK, invoice)
}

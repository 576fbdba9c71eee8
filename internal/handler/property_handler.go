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

// ListProperties handles retrieving all properties with optional filtering
func ListProperties(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB()
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if landlordID := c.QueryParam("landlord_id"); landlordID != "" {
		query = query.Where("landlord_id = ?", landlordID)
	}

	var properties []model.Property
	if result := query.Find(&properties); result.Error != nil {
		log.Error("Failed to list properties", zap.Error(result.Error))
		return respondError(c, log, result.Error)
	}

	log.Info("Properties retrieved", zap.Int("count", len(properties)))
	return c.JSON(http.StatusOK, properties)
}

// GetProperty handles retrieving a single property by ID
func GetProperty(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var property model.Property
	if result := database.GetDB().First(&property, "id = ?", id); result.Error != nil {
		log.Warn("Property not found", zap.String("property_id", id))
		return respondError(c, log, workflow.NotFound("property", id))
	}
	return c.JSON(http.StatusOK, property)
}

// CreateProperty registers a new unit administratively.
func CreateProperty(c echo.Context) error {
	log := logger.FromContext(c)

	var req workflow.CreatePropertyInput
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	property, err := workflow.Get().CreateProperty(c.Request().Context(), req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Property created",
		zap.String("property_id", property.ID),
		zap.String("status", string(property.Status)))
	return c.JSON(http.StatusCreated, property)
}

// VisibilityRequest toggles a property between draft, hidden and vacant.
type VisibilityRequest struct {
	Status model.PropertyStatus `json:"status"`
}

// UpdatePropertyVisibility handles the administrative visibility toggle.
func UpdatePropertyVisibility(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req VisibilityRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	property, err := workflow.Get().SetPropertyVisibility(c.Request().Context(), id, req.Status)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Property visibility updated",
		zap.String("property_id", id),
		zap.String("status", string(property.Status)),
		zap.String("actor", middleware.ActorFromContext(c)))
	return c.JSON(http.StatusOK, property)
}

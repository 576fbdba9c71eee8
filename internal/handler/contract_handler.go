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

// GetContract handles retrieving a single contract by ID
func GetContract(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var contract model.Contract
	if result := database.GetDB().First(&contract, "id = ?", id); result.Error != nil {
		log.Warn("Contract not found", zap.String("contract_id", id))
		return respondError(c, log, workflow.NotFound("contract", id))
	}
	return c.JSON(http.StatusOK, contract)
}

// ListContracts handles retrieving contracts with optional filtering
func ListContracts(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB()
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}
	if bookingID := c.QueryParam("booking_id"); bookingID != "" {
		query = query.Where("booking_id = ?", bookingID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var contracts []model.Contract
	if result := query.Find(&contracts); result.Error != nil {
		log.Error("Failed to list contracts", zap.Error(result.Error))
		return respondError(c, log, result.Error)
	}
	return c.JSON(http.StatusOK, contracts)
}

// ContractActionRequest applies one approval action to a contract.
type ContractActionRequest struct {
	Action string `json:"action"`
	Reason string `json:"reason"`
}

// PatchContract routes an approval action into the contract machine.
func PatchContract(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req ContractActionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}
	action, ok := workflow.ParseContractAction(req.Action)
	if !ok {
		return respondError(c, log, workflow.Validation("unknown action %q", req.Action))
	}

	actor := middleware.ActorFromContext(c)
	contract, err := workflow.Get().ContractAction(c.Request().Context(), id, actor, action, req.Reason)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Contract action applied",
		zap.String("contract_id", id),
		zap.String("action", string(action)),
		zap.String("status", string(contract.Status)),
		zap.String("actor", actor))
	return c.JSON(http.StatusOK, contract)
}

// ReviseContract creates a new contract revision with fresh terms.
func ReviseContract(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	actor := middleware.ActorFromContext(c)
	contract, err := workflow.Get().ReviseContractTerms(c.Request().Context(), id, actor)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Contract revised",
		zap.String("contract_id", contract.ID),
		zap.Int("revision", contract.Revision),
		zap.String("actor", actor))
	return c.JSON(http.StatusCreated, contract)
}

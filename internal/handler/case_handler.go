package handler

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lease-service/internal/middleware"
	"lease-service/internal/model"
	"lease-service/internal/workflow"
	"lease-service/pkg/database"
	"lease-service/pkg/logger"
)

// GetCase handles retrieving a single rental case by ID
func GetCase(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var rc model.RentalCase
	if result := database.GetDB().First(&rc, "id = ?", id); result.Error != nil {
		log.Warn("Case not found", zap.String("case_id", id))
		return respondError(c, log, workflow.NotFound("case", id))
	}
	return c.JSON(http.StatusOK, rc)
}

// ListCases handles retrieving rental cases with optional filtering
func ListCases(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB()
	if propertyID := c.QueryParam("property_id"); propertyID != "" {
		query = query.Where("property_id = ?", propertyID)
	}
	if tenantID := c.QueryParam("tenant_id"); tenantID != "" {
		query = query.Where("tenant_id = ?", tenantID)
	}
	if state := c.QueryParam("state"); state != "" {
		query = query.Where("state = ?", state)
	}

	var cases []model.RentalCase
	if result := query.Find(&cases); result.Error != nil {
		log.Error("Failed to list cases", zap.Error(result.Error))
		return respondError(c, log, result.Error)
	}
	return c.JSON(http.StatusOK, cases)
}

// DocumentRequest uploads one case document. The payload arrives as a
// multipart file or as base64 JSON.
type DocumentRequest struct {
	Kind    string `json:"kind" form:"kind"`
	Name    string `json:"name" form:"name"`
	Payload string `json:"payload"`
}

// SubmitCaseDocument stores a document with the storage collaborator
// and appends its reference to the case.
func SubmitCaseDocument(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req DocumentRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	in := workflow.DocumentInput{
		Kind: model.DocumentKind(req.Kind),
		Name: req.Name,
	}
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return respondError(c, log, err)
		}
		defer src.Close()
		payload, err := io.ReadAll(src)
		if err != nil {
			return respondError(c, log, err)
		}
		in.Payload = payload
		in.ContentType = file.Header.Get("Content-Type")
		if in.Name == "" {
			in.Name = file.Filename
		}
	} else if req.Payload != "" {
		payload, err := base64.StdEncoding.DecodeString(req.Payload)
		if err != nil {
			return respondError(c, log, workflow.Validation("payload must be base64"))
		}
		in.Payload = payload
	}

	actor := middleware.ActorFromContext(c)
	rc, err := workflow.Get().SubmitDocument(c.Request().Context(), id, actor, in)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Case document submitted",
		zap.String("case_id", id),
		zap.String("kind", req.Kind),
		zap.String("state", string(rc.State)),
		zap.Int("doc_count", len(rc.Docs)))
	return c.JSON(http.StatusCreated, rc)
}

// RecordCaseHandover stores the handover evidence on a case.
func RecordCaseHandover(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req workflow.HandoverInput
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}

	actor := middleware.ActorFromContext(c)
	rc, err := workflow.Get().RecordHandover(c.Request().Context(), id, actor, req)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Handover recorded",
		zap.String("case_id", id),
		zap.Int("meter_readings", len(req.MeterReadings)))
	return c.JSON(http.StatusOK, rc)
}

// CaseEventRequest applies one event to the case machine.
type CaseEventRequest struct {
	Event string `json:"event"`
	Note  string `json:"note"`
}

// ApplyCaseEvent advances the rental case state machine.
func ApplyCaseEvent(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req CaseEventRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, log, workflow.Validation("invalid request data"))
	}
	event, ok := workflow.ParseCaseEvent(req.Event)
	if !ok {
		return respondError(c, log, workflow.Validation("unknown event %q", req.Event))
	}

	actor := middleware.ActorFromContext(c)
	rc, err := workflow.Get().AdvanceCase(c.Request().Context(), id, actor, event, req.Note)
	if err != nil {
		return respondError(c, log, err)
	}

	log.Info("Case event applied",
		zap.String("case_id", id),
		zap.String("event", string(event)),
		zap.String("state", string(rc.State)),
		zap.String("actor", actor))
	return c.JSON(http.StatusOK, rc)
}

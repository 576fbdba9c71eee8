package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"lease-service/internal/workflow"
)

// respondError renders a workflow error as the machine-readable
// envelope. Unexpected faults are logged and collapsed to INTERNAL so
// no raw detail leaks.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	wErr := workflow.AsError(err)
	if wErr.Code == workflow.CodeInternal {
		log.Error("Request failed", zap.Error(err))
	}
	return c.JSON(wErr.HTTPStatus(), echo.Map{"error": wErr})
}

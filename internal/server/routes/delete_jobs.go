package routes

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/internal/storage"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// DeleteJobHandler removes every stored result of a job.
func DeleteJobHandler(c echo.Context) error {
	type deleteJobResponse struct {
		Message string `json:"message"`
	}

	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		return c.JSON(http.StatusBadRequest, deleteJobResponse{
			Message: "Invalid job id",
		})
	}

	results := c.(*middleware.AppContext).App.Core.Results
	if results == nil {
		return c.JSON(http.StatusNotFound, deleteJobResponse{
			Message: "Result storage not configured",
		})
	}

	if err := results.Delete(c.Request().Context(), storage.JobPrefix(id)); err != nil {
		logger.Error("[Server] Failed to delete job results", "job_id", id, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteJobResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteJobResponse{
		Message: "Job results deleted",
	})
}

package routes

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/internal/storage"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

// GetJobResultHandler returns the stored result of a finished job, or a
// presigned download link when link=true.
func GetJobResultHandler(c echo.Context) error {
	type getJobResultResponse struct {
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	id := c.Param("id")
	if err := uuid.Validate(id); err != nil {
		return c.JSON(http.StatusBadRequest, getJobResultResponse{
			Message: "Invalid job id",
		})
	}

	outFormat, err := render.ParseFormat(c.QueryParam("output"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, getJobResultResponse{
			Message: "Invalid output format",
		})
	}

	results := c.(*middleware.AppContext).App.Core.Results
	if results == nil {
		return c.JSON(http.StatusNotFound, getJobResultResponse{
			Message: "Result storage not configured",
		})
	}

	ctx := c.Request().Context()
	key := storage.ResultKey(id, outFormat)

	if c.QueryParam("link") == "true" {
		link, err := results.DownloadLink(ctx, key)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, getJobResultResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusOK, getJobResultResponse{
			Message: "Result link generated",
			URL:     link,
		})
	}

	body, err := results.Get(ctx, key)
	if err != nil {
		return c.JSON(http.StatusNotFound, getJobResultResponse{
			Message: "Result not found",
		})
	}
	return c.Blob(http.StatusOK, contentType(outFormat), body)
}

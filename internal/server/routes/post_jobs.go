package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/parversion/internal/queue"
	"github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
)

// CreateJobHandler queues a document for analysis by a worker.
func CreateJobHandler(c echo.Context) error {
	type createJobBody struct {
		Content  string `json:"content" validate:"required_without_all=Location URL"`
		Location string `json:"location"`
		URL      string `json:"url" validate:"omitempty,url"`
		Format   string `json:"format" validate:"omitempty,oneof=auto html xml"`
		Output   string `json:"output" validate:"omitempty,oneof=json xml text"`
	}

	type createJobResponse struct {
		Message string `json:"message"`
		ID      string `json:"id,omitempty"`
	}

	data := new(createJobBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createJobResponse{
			Message: "Invalid request body",
		})
	}

	a := c.(*middleware.AppContext).App
	if a.Queue == nil {
		return c.JSON(http.StatusServiceUnavailable, createJobResponse{
			Message: "Job queue not configured",
		})
	}

	job := queue.NewJob(queue.Job{
		Content:  data.Content,
		Location: data.Location,
		URL:      data.URL,
		Format:   data.Format,
		Output:   data.Output,
	})
	if err := queue.PublishJob(c.Request().Context(), a.Queue, a.AnalyzeQueue, job); err != nil {
		logger.Error("[Server] Failed to enqueue job", "err", err)
		return c.JSON(http.StatusInternalServerError, createJobResponse{
			Message: "Internal server error",
		})
	}

	logger.Info("[Server] Job queued", "job_id", job.ID)
	return c.JSON(http.StatusAccepted, createJobResponse{
		Message: "Job queued",
		ID:      job.ID,
	})
}

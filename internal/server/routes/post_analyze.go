package routes

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/parversion/internal/server/middleware"
	"github.com/OFFIS-RIT/parversion/pkg/document"
	"github.com/OFFIS-RIT/parversion/pkg/logger"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

type analyzeBody struct {
	Content string `json:"content" validate:"required_without=URL"`
	URL     string `json:"url" validate:"omitempty,url"`
	Format  string `json:"format" validate:"omitempty,oneof=auto html xml"`
	Output  string `json:"output" validate:"omitempty,oneof=json xml text"`
}

// AnalyzeHandler analyzes a document inline. Without content the document
// is fetched from url.
func AnalyzeHandler(c echo.Context) error {
	data := new(analyzeBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Message: "Invalid request body",
			Error:   err.Error(),
		})
	}

	outFormat, err := render.ParseFormat(data.Output)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Message: "Invalid output format",
		})
	}

	ctx := c.Request().Context()
	core := c.(*middleware.AppContext).App.Core

	text := data.Content
	if text == "" {
		text, err = core.Load(ctx, data.URL)
		if err != nil {
			return c.JSON(statusFor(err), errorResponse{
				Message: "Failed to load document",
				Error:   err.Error(),
			})
		}
	}

	res, err := core.AnalyzeText(ctx, text, document.ParseFormat(data.Format), data.URL)
	core.FlushModelMetrics()
	if err != nil {
		logger.Error("[Server] Analysis failed", "err", err)
		return c.JSON(statusFor(err), errorResponse{
			Message: "Analysis failed",
			Error:   err.Error(),
		})
	}

	if outFormat == render.FormatJSON {
		return c.JSON(http.StatusOK, res)
	}

	var buf bytes.Buffer
	if err := render.Render(&buf, res, outFormat); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "Internal server error",
		})
	}
	return c.Blob(http.StatusOK, contentType(outFormat), buf.Bytes())
}

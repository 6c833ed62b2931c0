package routes

import (
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/parversion/pkg/common"
	"github.com/OFFIS-RIT/parversion/pkg/render"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps an analysis error to the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrInputIO):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrOracle):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func contentType(f render.Format) string {
	switch f {
	case render.FormatXML:
		return "application/xml; charset=utf-8"
	case render.FormatText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope of every JSON reply.
type APIResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ListData is a list payload with its failures.
type ListData struct {
	Rows     any      `json:"rows"`
	Total    int      `json:"total"`
	Failures []string `json:"failures,omitempty"`
}

func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, APIResponse{Status: status, Message: http.StatusText(status), Data: data})
}

func success(c echo.Context, data any) error { return respond(c, http.StatusOK, data) }

func badRequest(c echo.Context, data any) error { return respond(c, http.StatusBadRequest, data) }

package router

import (
	"net/http"

	"github.com/deppfellow/employee-api/internal/handler"
	"github.com/deppfellow/employee-api/internal/middleware"
	"github.com/labstack/echo/v4"
)

func registerAuthRoutes(api *echo.Group, h *handler.Handlers, m *middleware.Middlewares) {
	auth := api.Group("/auth")
	a := h.Auth

	auth.POST("/token", handler.Handle(a.Handler, a.CreateToken, http.StatusOK, &handler.TokenRequest{}))
	auth.GET("/public", handler.Handle(a.Handler, a.Public, http.StatusOK, &handler.EmptyRequest{}))
	auth.GET("/protected", handler.Handle(a.Handler, a.Protected, http.StatusOK, &handler.EmptyRequest{}), m.Auth.RequireAuth)
}

package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/parversion/internal/app"
	"github.com/OFFIS-RIT/parversion/internal/queue"
)

type AppUser struct {
	Subject     string
	Role        string
	Permissions []string
}

// App carries the process-wide clients into every request. Queue is nil
// when no broker is configured; Keyfunc is nil when authentication is off.
type App struct {
	Core         *app.App
	Queue        queue.Channel
	AnalyzeQueue string
	Keyfunc      jwt.Keyfunc
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(a *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, a, nil}
			return next(cc)
		}
	}
}

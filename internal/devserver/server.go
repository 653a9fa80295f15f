package devserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/carousell/ct-go/pkg/logger"
	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/mycampus-app/quickchat/internal/config"
)

// StartServer runs the development portal backend: the chat REST contract
// plus the per-room websocket endpoint. Meant for local development and
// integration tests, not production.
func StartServer(
	lc fx.Lifecycle,
	sd fx.Shutdowner,
	conf *config.Config,
	handler Controller,
) {
	e := NewEcho(handler)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Infow(ctx, "starting dev server", "addr", conf.Server.Addr)
				if err := e.Start(conf.Server.Addr); !errors.Is(err, http.ErrServerClosed) {
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

// NewEcho wires routes and middleware; split out so tests can mount the
// whole server on httptest.
func NewEcho(handler Controller) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	e.Use(Metrics())
	e.Use(LogRequest(logger.MustNamed("http")))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Errorw(c.Request().Context(), "PANIC RECOVER", "error", err, "stack", string(stack))
			return nil
		},
	}))

	e.GET("/health", handler.Health)
	e.GET("/ws/:id", handler.ServeRoomSocket)

	api := e.Group("/api")
	api.GET("/chatrooms", handler.ListRooms)
	api.POST("/chatrooms/:id/clear", handler.ClearRoom)
	api.GET("/messages/:id", handler.History)
	api.POST("/messages/:id", handler.SendMessage)
	api.PATCH("/messages/:id", handler.EditMessage)
	api.DELETE("/messages/:id", handler.DeleteMessage)
	api.POST("/messages/:id/hide", handler.HideMessage)
	api.GET("/messages/:id/search", handler.Search)

	return e
}

package app

import (
	"github.com/carousell/ct-go/pkg/logger"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/mycampus-app/quickchat/internal/chat"
	"github.com/mycampus-app/quickchat/internal/config"
	"github.com/mycampus-app/quickchat/internal/devserver"
	"github.com/mycampus-app/quickchat/internal/repo/channel"
	"github.com/mycampus-app/quickchat/internal/repo/portalapi"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	log.Debugw("config loaded", log.Reflect("config", conf))
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			portalapi.NewClient,
			channel.NewDialer,
			chat.NewSession,

			devserver.NewStore,
			devserver.NewHub,
			devserver.NewController,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}

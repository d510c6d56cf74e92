//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/Kargones/wsus-dbmaint/internal/config"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideOutputWriter,
	ProvideTraceID,
	ProvideAlerter,
	ProvideMetricsCollector,
	ProvideTracerProvider,
	ProvideEngine,
	ProvideDeps,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт App по загруженной конфигурации.
// Реализация генерируется в wire_gen.go.
//
//	cfg, err := config.MustLoad()
//	...
//	app, err := di.InitializeApp(cfg)
//	defer app.Close()
func InitializeApp(cfg *config.Config) (*App, error) {
	wire.Build(ProviderSet)
	return nil, nil
}

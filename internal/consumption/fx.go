package consumption

import (
	"github.com/smallbiznis/woyofal/internal/consumption/repository"
	"github.com/smallbiznis/woyofal/internal/consumption/service"
	"go.uber.org/fx"
)

var Module = fx.Module("consumption.tracker",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

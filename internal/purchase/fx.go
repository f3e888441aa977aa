package purchase

import (
	"github.com/smallbiznis/woyofal/internal/purchase/repository"
	"github.com/smallbiznis/woyofal/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

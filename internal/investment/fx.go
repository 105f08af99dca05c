package investment

import (
	"github.com/groundstone/terravest/internal/investment/repository"
	"github.com/groundstone/terravest/internal/investment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("investment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

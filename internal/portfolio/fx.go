package portfolio

import (
	"github.com/groundstone/terravest/internal/portfolio/service"
	"go.uber.org/fx"
)

var Module = fx.Module("portfolio.service",
	fx.Provide(service.New),
)

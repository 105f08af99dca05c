package identity

import (
	"github.com/groundstone/terravest/internal/identity/repository"
	"github.com/groundstone/terravest/internal/identity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

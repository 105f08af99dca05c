package project

import (
	"github.com/groundstone/terravest/internal/project/repository"
	"github.com/groundstone/terravest/internal/project/service"
	"go.uber.org/fx"
)

var Module = fx.Module("project.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

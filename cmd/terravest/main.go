package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/groundstone/terravest/internal/chain"
	"github.com/groundstone/terravest/internal/config"
	"github.com/groundstone/terravest/internal/identity"
	"github.com/groundstone/terravest/internal/investment"
	"github.com/groundstone/terravest/internal/migration"
	"github.com/groundstone/terravest/internal/observability"
	"github.com/groundstone/terravest/internal/portfolio"
	"github.com/groundstone/terravest/internal/project"
	"github.com/groundstone/terravest/internal/ratelimit"
	"github.com/groundstone/terravest/internal/server"
	"github.com/groundstone/terravest/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		ratelimit.Module,

		// Functional domains
		identity.Module,
		project.Module,
		chain.Module,
		investment.Module,
		portfolio.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

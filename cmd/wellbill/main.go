package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fieldworks/wellbill/internal/config"
	"github.com/fieldworks/wellbill/internal/migration"
	"github.com/fieldworks/wellbill/internal/server"
	"github.com/fieldworks/wellbill/pkg/db"
	"github.com/fieldworks/wellbill/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		config.BillingModule,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,

		// HTTP surface and the billing domain behind it
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

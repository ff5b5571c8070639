package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openagora/agora/internal/clock"
	"github.com/openagora/agora/internal/migration"
	"github.com/openagora/agora/internal/observability"
	"github.com/openagora/agora/internal/server"
	"github.com/openagora/agora/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		server.Module,
		migration.Module,
	)
	app.Run()
}

func newSnowflakeNode() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

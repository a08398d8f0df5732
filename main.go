package main

import (
	"github.com/wfunc/drawserver/config"
	"github.com/wfunc/drawserver/logger"
	"github.com/wfunc/drawserver/persistence"
	"github.com/wfunc/drawserver/server"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize logger
	logger.Init(cfg.Server.Debug)
	defer logger.Sync()

	// Initialize the room store. An unreachable store at startup is fatal.
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Ping(); err != nil {
		logger.Log.Fatalf("Database ping failed: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Initialize and start the game server
	gameServer := server.NewGameServer(cfg, db)

	logger.Log.Infof("Starting drawing game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

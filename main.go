package main

import (
	"net/http"

	"inkwell/config"
	"inkwell/config/database"
	"inkwell/pkg/cache"
	"inkwell/pkg/logger"
	"inkwell/router"
	"inkwell/socket"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()

	// The cache is an optimization: if Redis is down the service still runs
	// against Postgres alone, so startup does not wait on it.
	redisCache := cache.New(cfg.RedisAddr, cfg.RedisPassword)
	defer redisCache.Close()

	hub := socket.NewHub()
	go hub.Run()

	handler := router.Setup(db, redisCache, hub, cfg)

	logger.Sugar.Infof("Listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Sugar.Fatalf("Server stopped: %v", err)
	}
}

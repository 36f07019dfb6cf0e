package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"inkwell/config"
	"inkwell/pkg/logger"
)

// Connect opens the Postgres pool and verifies it with a short retry loop
// to ride out transient DNS/network blips at startup.
func Connect(cfg config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.Ping(); err == nil {
			logger.Sugar.Info("Successfully connected to the database")
			return db, nil
		}
		logger.Sugar.Infof("Database connection failed, retrying in 2s... (%v)", err)
		time.Sleep(2 * time.Second)
	}
	db.Close()
	return nil, fmt.Errorf("connect database after retries: %w", err)
}

package main

import (
	"fmt"
	"time"

	"github.com/codr1/courtside/internal/config"
	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/reservations"
)

// localEnv is the configuration and database the offline commands work against.
type localEnv struct {
	cfg   *config.Config
	loc   *time.Location
	db    *db.DB
	store *reservations.Store
}

func openLocal() (*localEnv, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Status.Location()
	if err != nil {
		return nil, err
	}
	database, err := db.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &localEnv{
		cfg:   cfg,
		loc:   loc,
		db:    database,
		store: reservations.NewStore(database),
	}, nil
}

func (e *localEnv) close() {
	_ = e.db.Close()
}

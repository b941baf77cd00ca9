package handlers

import (
	"time"

	"media-catalogue/internal/database"
	"media-catalogue/internal/startup"
)

type Handlers struct {
	db        *database.Database
	config    *startup.Config
	startTime time.Time
}

func New(db *database.Database, config *startup.Config) *Handlers {
	return &Handlers{
		db:        db,
		config:    config,
		startTime: time.Now(),
	}
}

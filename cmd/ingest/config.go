package main

import (
	"context"
	"fmt"
	"time"

	"courseplanner-backend/internal/notify"
	"courseplanner-backend/internal/store"
	"courseplanner-backend/internal/store/mongo"
	"courseplanner-backend/internal/store/sqlite"
)

type StoreConfig struct {
	// Driver is either "sqlite" (default) or "mongo".
	Driver string        `json:"driver"`
	Sqlite sqlite.Config `json:"sqlite"`
	Mongo  mongo.Config  `json:"mongo"`
}

type BrowserConfig struct {
	ExecPath string `json:"exec_path"`
	// Headed shows the browser window, useful when debugging selectors.
	Headed            bool   `json:"headed"`
	SearchUrl         string `json:"search_url"`
	NavigationTimeout int    `json:"navigation_timeout"`
	IdleGrace         int    `json:"idle_grace"`
}

type RatingsConfig struct {
	Endpoint          string  `json:"endpoint"`
	SchoolName        string  `json:"school_name"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Concurrency       int     `json:"concurrency"`
}

type Config struct {
	Timezone string `json:"timezone"`
	// Schedule is the cron spec of the daemon.
	Schedule string `json:"schedule"`
	// Subjects to scrape, discovered from the search form when empty.
	Subjects []string          `json:"subjects"`
	Store    StoreConfig       `json:"store"`
	Browser  BrowserConfig     `json:"browser"`
	Ratings  RatingsConfig     `json:"ratings"`
	Smtp     notify.SmtpConfig `json:"smtp"`
}

const defaultSchedule = "0 3 * * *"

func (c Config) schedule() string {
	if c.Schedule == "" {
		return defaultSchedule
	}
	return c.Schedule
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func openStore(ctx context.Context, cfg StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.Sqlite.File == "" && cfg.Sqlite.Url == "" {
			cfg.Sqlite.File = "courseplanner.db"
		}
		return sqlite.Open(cfg.Sqlite)
	case "mongo":
		return mongo.Open(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

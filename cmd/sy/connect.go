package main

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zulandar/shiftyard/internal/config"
	"github.com/zulandar/shiftyard/internal/db"
	"github.com/zulandar/shiftyard/internal/logging"
	"github.com/zulandar/shiftyard/internal/notify"
	"github.com/zulandar/shiftyard/internal/remote"
	"github.com/zulandar/shiftyard/internal/session"
	"github.com/zulandar/shiftyard/internal/subtype"
)

// connectFromConfig loads config and connects to the configured database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", describeDB(cfg.Database), err)
	}

	return cfg, gormDB, nil
}

// describeDB names the database for progress output.
func describeDB(d config.DatabaseConfig) string {
	if d.Driver == config.DriverSQLite {
		return d.Path
	}
	return fmt.Sprintf("%s at %s:%d", d.Name, d.Host, d.Port)
}

// sessionDeps wires the collaborators of an editing session from config.
func sessionDeps(cfg *config.Config, gormDB *gorm.DB) (session.Deps, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return session.Deps{}, err
	}
	fan, err := notify.FromConfig(cfg.Notify, log)
	if err != nil {
		return session.Deps{}, err
	}
	return session.Deps{
		DB:       gormDB,
		Remote:   remote.New(cfg.Remote.SchedulerURL, cfg.Remote.VerifierURL, cfg.Remote.Timeout),
		Engine:   subtype.New(subtype.WithSeed(cfg.Subtype.Seed)),
		Notifier: fan,
		Log:      log,
	}, nil
}

// openSession connects and opens an editing session on one cycle.
func openSession(ctx context.Context, configPath string, cycleID uint) (*session.Session, *zap.Logger, error) {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	deps, err := sessionDeps(cfg, gormDB)
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.Open(ctx, deps, cycleID)
	if err != nil {
		return nil, nil, err
	}
	return sess, deps.Log, nil
}

func parseCycleID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid cycle id %q", arg)
	}
	return uint(id), nil
}

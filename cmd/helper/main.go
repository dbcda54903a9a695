package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gride/internal/auth"
	"gride/internal/mylogger"
)

func main() {
	cfg := parseFlags()
	appLogger := mylogger.New(os.Getenv("LOG_LEVEL")).With("driver_id", cfg.DriverID)

	if cfg.DriverID == "" {
		appLogger.Warn("driver_id is required")
		os.Exit(2)
	}

	token := cfg.Token
	if token == "" && cfg.Secret != "" {
		var err error
		token, err = auth.Sign(cfg.Secret, auth.Identity{SubjectID: cfg.DriverID, Role: auth.RoleDriver}, time.Hour)
		if err != nil {
			appLogger.Error("Failed to sign token", err)
			os.Exit(1)
		}
	}
	if token == "" {
		appLogger.Warn("token or secret is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := NewDriverService(ctx, cfg, appLogger)
	if err := driver.Start(token); err != nil {
		appLogger.Error("Failed to start driver", err)
		os.Exit(1)
	}
	defer driver.Close()

	appLogger.Action("driver_simulation_started").Info("Reporting locations", "interval", cfg.Interval.String())
	driver.Drive()
}

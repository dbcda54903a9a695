package main

import (
	"flag"
	"time"
)

const (
	LocationUpdateInterval = 2 * time.Second
	InitialConnectDelay    = 1 * time.Second
	WSPath                 = "/ws"
)

type Location struct {
	Latitude  float64
	Longitude float64
}

type Config struct {
	BaseURL         string
	DriverID        string
	Token           string
	Secret          string
	RideID          string
	InitialLocation Location
	Interval        time.Duration
	Updates         int
}

func parseFlags() *Config {
	cfg := &Config{}
	flag.StringVar(&cfg.BaseURL, "url", "ws://localhost:5000", "realtime service base url")
	flag.StringVar(&cfg.DriverID, "driver_id", "", "driver id to register")
	flag.StringVar(&cfg.Token, "token", "", "driver bearer token")
	flag.StringVar(&cfg.Secret, "secret", "", "sign a short-lived token with this secret when -token is empty")
	flag.StringVar(&cfg.RideID, "ride_id", "", "ride room to join and report into")
	flag.Float64Var(&cfg.InitialLocation.Latitude, "lat", 6.8013, "starting latitude")
	flag.Float64Var(&cfg.InitialLocation.Longitude, "lng", -58.1551, "starting longitude")
	flag.DurationVar(&cfg.Interval, "interval", LocationUpdateInterval, "location update interval")
	flag.IntVar(&cfg.Updates, "updates", 0, "stop after this many updates, 0 runs until interrupted")
	flag.Parse()
	return cfg
}

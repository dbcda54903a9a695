package main

import (
	"context"
	"math/rand"
	"time"

	"gride/internal/mylogger"
	websocketdto "gride/internal/realtime-service/core/domain/websocket_dto"
)

// DriverService drives one simulated driver over the gateway.
type DriverService struct {
	cfg      *Config
	current  Location
	wsClient *WebSocketClient
	logger   mylogger.Logger
	ctx      context.Context
}

func NewDriverService(ctx context.Context, cfg *Config, logger mylogger.Logger) *DriverService {
	return &DriverService{
		cfg:      cfg,
		current:  cfg.InitialLocation,
		wsClient: NewWebSocketClient(ctx, logger),
		logger:   logger,
		ctx:      ctx,
	}
}

func (d *DriverService) Start(token string) error {
	if err := d.wsClient.Connect(d.cfg.BaseURL+WSPath, token); err != nil {
		return err
	}

	go func() {
		if err := d.wsClient.ReadEvents(d.handleEvent); err != nil {
			d.logger.Error("Read loop stopped", err)
		}
	}()

	if err := d.wsClient.Emit(websocketdto.EventRegisterDriver, websocketdto.RegisterDriver{DriverID: d.cfg.DriverID}); err != nil {
		return err
	}
	if d.cfg.RideID != "" {
		if err := d.wsClient.Emit(websocketdto.EventJoinRideRoom, d.cfg.RideID); err != nil {
			return err
		}
	}

	time.Sleep(InitialConnectDelay)
	return nil
}

func (d *DriverService) handleEvent(ev websocketdto.Event) {
	d.logger.Action("event_received").Info("Received event", "type", ev.Type, "data", string(ev.Data))
}

// Drive reports a drifting position every interval until ctx ends or the
// update limit is reached.
func (d *DriverService) Drive() {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for sent := 0; d.cfg.Updates == 0 || sent < d.cfg.Updates; sent++ {
		select {
		case <-ticker.C:
			d.current.Latitude += (rand.Float64() - 0.5) / 1000
			d.current.Longitude += (rand.Float64() - 0.5) / 1000

			lat, lng := d.current.Latitude, d.current.Longitude
			update := websocketdto.DriverLocation{
				DriverID:  d.cfg.DriverID,
				Latitude:  &lat,
				Longitude: &lng,
				RideID:    websocketdto.RoomID(d.cfg.RideID),
			}
			if err := d.wsClient.Emit(websocketdto.EventDriverLocation, update); err != nil {
				d.logger.Error("Failed to send location update", err)
				return
			}
			d.logger.Action("location_sent").Debug("Location update sent", "lat", lat, "lng", lng)

		case <-d.ctx.Done():
			return
		}
	}
}

func (d *DriverService) Close() error {
	return d.wsClient.Close()
}

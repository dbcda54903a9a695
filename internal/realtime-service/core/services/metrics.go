package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	presenceDrivers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_presence_drivers",
		Help: "Drivers currently held in the presence registry",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_notifications_total",
		Help: "Driver notifications dispatched, by outcome",
	}, []string{"outcome"})
)

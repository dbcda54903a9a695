package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_ws_sessions",
		Help: "Open websocket sessions",
	})

	handshakesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_ws_handshakes_total",
		Help: "Websocket handshakes by result",
	}, []string{"result"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_ws_events_total",
		Help: "Inbound websocket events by type and result",
	}, []string{"event", "result"})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "realtime_ws_dropped_messages_total",
		Help: "Outbound messages dropped because a session buffer was full or closed",
	})
)

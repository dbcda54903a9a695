package handle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_transfers_total",
		Help: "SendMoney requests by result",
	}, []string{"result"})

	payoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wallet_payouts_total",
		Help: "RequestPayout requests by result",
	}, []string{"result"})
)

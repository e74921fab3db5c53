package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "medqueue_ws_dropped_total",
		Help: "Websocket messages dropped because a buffer was full or a client was gone.",
	})
	connectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medqueue_ws_clients",
		Help: "Currently connected websocket clients.",
	})
)

func init() {
	prometheus.MustRegister(droppedTotal, connectedClients)
}

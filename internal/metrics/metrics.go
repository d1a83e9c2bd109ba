package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cryptobot_cycles_total", Help: "Analysis cycles by outcome"},
		[]string{"outcome"},
	)
	MovementScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "cryptobot_movement_score", Help: "Last computed movement score"},
		[]string{"product"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cryptobot_orders_total", Help: "Orders placed"},
		[]string{"side"},
	)
	FlashEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cryptobot_flash_events_total", Help: "Flash rules triggered"},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, MovementScore, OrdersTotal, FlashEventsTotal)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics server listening")
	return srv
}

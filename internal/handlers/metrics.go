package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"page-server/internal/logging"
)

// promErrorLogger routes promhttp gather errors to the application log.
type promErrorLogger struct{}

func (promErrorLogger) Println(v ...interface{}) {
	logging.L().Error().Str("component", "metrics").Msg(fmt.Sprint(v...))
}

// MetricsHandler serves the default registry, negotiating OpenMetrics when
// the scraper asks for it. Gather errors are logged and the remaining
// metrics are still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          promErrorLogger{},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	)
}

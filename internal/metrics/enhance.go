package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var enhanceDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "enhance",
		Name:      "request_duration_seconds",
		Help:      "文本润色上游调用耗时（秒）。",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	},
	[]string{"section", "outcome"},
)

// ObserveEnhance 记录一次润色调用。
func ObserveEnhance(section string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	enhanceDuration.WithLabelValues(section, outcome).Observe(elapsed.Seconds())
}

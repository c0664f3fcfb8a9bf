package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KernelDuration tracks wall time spent inside each operator kernel,
	// labeled by kernel name and dtype so a slow dtype branch shows up
	// without needing per-kernel dashboards.
	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kiln_kernel_duration_seconds",
		Help:    "Time spent executing an operator kernel.",
		Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"kernel", "dtype"})

	// KernelErrors counts kernel failures by kernel name and error kind.
	KernelErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiln_kernel_errors_total",
		Help: "Count of operator kernel failures by error kind.",
	}, []string{"kernel", "kind"})
)

// Observe records a completed kernel call's duration and, if kind is
// non-empty, increments KernelErrors under that error-kind label.
func Observe(kernel string, dt string, seconds float64, kind string) {
	KernelDuration.WithLabelValues(kernel, dt).Observe(seconds)
	if kind != "" {
		KernelErrors.WithLabelValues(kernel, kind).Inc()
	}
}

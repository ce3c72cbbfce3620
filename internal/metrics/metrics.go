package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitswitch",
			Name:      "bytes_received_total",
			Help:      "Payload bytes received across all variant fetches.",
		},
	)

	VariantsDecoded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitswitch",
			Name:      "variants_decoded_total",
			Help:      "Variants whose decode finished.",
		},
	)

	AcquisitionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bitswitch",
			Name:      "acquisition_runs_total",
			Help:      "Acquisition runs by final status.",
		},
		[]string{"status"},
	)

	VariantSwitches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bitswitch",
			Name:      "variant_switches_total",
			Help:      "Switch requests accepted by the renderer.",
		},
	)

	AcquisitionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bitswitch",
			Name:      "acquisition_duration_seconds",
			Help:      "Wall time from first request to decoded batch.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	AcquisitionProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bitswitch",
			Name:      "acquisition_progress_ratio",
			Help:      "Last emitted overall progress of the current run (0-1).",
		},
	)
)

// Register registers the bitswitch metrics into the default registry.
func Register() {
	prometheus.MustRegister(BytesReceived, VariantsDecoded, AcquisitionRuns, VariantSwitches, AcquisitionDuration, AcquisitionProgress)
}

// Gauge mirrors progress into AcquisitionProgress.
// It satisfies progress.Display without importing that package.
type Gauge struct{}

// Render sets the gauge from a whole percent
func (Gauge) Render(percent int) { AcquisitionProgress.Set(float64(percent) / 100) }

// Complete pins the gauge at 1
func (Gauge) Complete() { AcquisitionProgress.Set(1) }

// Fail leaves the last value in place
func (Gauge) Fail(error) {}

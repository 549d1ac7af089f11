package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	exchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "link",
			Name:      "exchanges_total",
			Help:      "Command/reply exchanges by result.",
		},
		[]string{"result"},
	)
	exchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mk2",
			Subsystem: "link",
			Name:      "exchange_duration_seconds",
			Help:      "Successful exchange duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	retries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "link",
			Name:      "retries_total",
			Help:      "Command resends after a reply timeout.",
		},
	)
	droppedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "framing",
			Name:      "dropped_bytes_total",
			Help:      "Bytes discarded while resynchronizing the stream.",
		},
	)
	checksumErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "framing",
			Name:      "checksum_errors_total",
			Help:      "Frames rejected for a bad checksum.",
		},
	)
	unsolicitedFrames = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "link",
			Name:      "unsolicited_frames_total",
			Help:      "Decoded frames that answered no outstanding command.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mk2",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests to the monitor.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			exchanges, exchangeDuration, retries,
			droppedBytes, checksumErrors, unsolicitedFrames,
			httpRequests,
		)
	})
}

func RecordExchange(result string, duration time.Duration) {
	RegisterMetrics()
	exchanges.WithLabelValues(result).Inc()
	if result == "ok" {
		exchangeDuration.Observe(duration.Seconds())
	}
}

func RecordRetry() {
	RegisterMetrics()
	retries.Inc()
}

func RecordFraming(dropped, badChecksums uint64) {
	RegisterMetrics()
	if dropped > 0 {
		droppedBytes.Add(float64(dropped))
	}
	if badChecksums > 0 {
		checksumErrors.Add(float64(badChecksums))
	}
}

func RecordUnsolicited() {
	RegisterMetrics()
	unsolicitedFrames.Inc()
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Package metrics provides Prometheus metrics integration for duraq.
//
// Usage:
//
//	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
//	collector.RecordAppend("orders", payloadSize, duration)
//	collector.RecordCheckpoint("orders", duration)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector registers and updates the journal's Prometheus metrics,
// partitioned by queue name the way the teacher's Collector partitions
// by queue but with real counter/histogram vectors backing each metric
// instead of hand-rolled atomics.
type Collector struct {
	appendTotal    *prometheus.CounterVec
	appendErrors   *prometheus.CounterVec
	appendBytes    *prometheus.CounterVec
	appendDuration *prometheus.HistogramVec

	checkpointTotal    *prometheus.CounterVec
	checkpointErrors   *prometheus.CounterVec
	checkpointDuration *prometheus.HistogramVec

	rotationsTotal   *prometheus.CounterVec
	truncationsTotal *prometheus.CounterVec
	segmentsRemoved  *prometheus.CounterVec
	bytesFreed       *prometheus.CounterVec

	archiveBytes *prometheus.GaugeVec
	readerHead   *prometheus.GaugeVec
	readerBehind *prometheus.GaugeVec
}

// NewCollector builds a Collector and registers its metrics with reg. A
// nil reg registers against prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		appendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "append_total",
			Help: "Total number of items appended to a queue's journal.",
		}, []string{"queue"}),
		appendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "append_errors_total",
			Help: "Total number of failed append operations.",
		}, []string{"queue"}),
		appendBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "append_bytes_total",
			Help: "Total bytes of item payload appended.",
		}, []string{"queue"}),
		appendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "append_duration_seconds",
			Help:    "Append operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),
		checkpointTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "reader", Name: "checkpoint_total",
			Help: "Total number of reader checkpoints written.",
		}, []string{"queue"}),
		checkpointErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "reader", Name: "checkpoint_errors_total",
			Help: "Total number of failed reader checkpoints.",
		}, []string{"queue"}),
		checkpointDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "duraq", Subsystem: "reader", Name: "checkpoint_duration_seconds",
			Help:    "Checkpoint latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),
		rotationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "rotations_total",
			Help: "Total number of segment rotations.",
		}, []string{"queue"}),
		truncationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "truncations_total",
			Help: "Total number of segment truncations.",
		}, []string{"queue"}),
		segmentsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "segments_removed_total",
			Help: "Total number of segment files removed by truncation.",
		}, []string{"queue"}),
		bytesFreed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "bytes_freed_total",
			Help: "Total bytes freed by truncation.",
		}, []string{"queue"}),
		archiveBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "duraq", Subsystem: "journal", Name: "archive_bytes",
			Help: "Current total size in bytes of a queue's journal segments.",
		}, []string{"queue"}),
		readerHead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "duraq", Subsystem: "reader", Name: "head",
			Help: "Current head id of a named reader.",
		}, []string{"queue", "reader"}),
		readerBehind: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "duraq", Subsystem: "reader", Name: "done_set_size",
			Help: "Number of out-of-order acknowledged ids ahead of a reader's head.",
		}, []string{"queue", "reader"}),
	}

	reg.MustRegister(
		c.appendTotal, c.appendErrors, c.appendBytes, c.appendDuration,
		c.checkpointTotal, c.checkpointErrors, c.checkpointDuration,
		c.rotationsTotal, c.truncationsTotal, c.segmentsRemoved, c.bytesFreed,
		c.archiveBytes, c.readerHead, c.readerBehind,
	)
	return c
}

// RecordAppend records a successful append.
func (c *Collector) RecordAppend(queue string, payloadSize int, duration time.Duration) {
	if c == nil {
		return
	}
	c.appendTotal.WithLabelValues(queue).Inc()
	c.appendBytes.WithLabelValues(queue).Add(float64(payloadSize))
	c.appendDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordAppendError records a failed append.
func (c *Collector) RecordAppendError(queue string) {
	if c == nil {
		return
	}
	c.appendErrors.WithLabelValues(queue).Inc()
}

// RecordCheckpoint records a successful reader checkpoint.
func (c *Collector) RecordCheckpoint(queue string, duration time.Duration) {
	if c == nil {
		return
	}
	c.checkpointTotal.WithLabelValues(queue).Inc()
	c.checkpointDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// RecordCheckpointError records a failed reader checkpoint.
func (c *Collector) RecordCheckpointError(queue string) {
	if c == nil {
		return
	}
	c.checkpointErrors.WithLabelValues(queue).Inc()
}

// RecordRotation records a segment rotation.
func (c *Collector) RecordRotation(queue string) {
	if c == nil {
		return
	}
	c.rotationsTotal.WithLabelValues(queue).Inc()
}

// RecordTruncation records a segment truncation, freeing bytesFreed
// bytes across segmentsRemoved segment files.
func (c *Collector) RecordTruncation(queue string, segmentsRemoved int, bytesFreed int64) {
	if c == nil {
		return
	}
	c.truncationsTotal.WithLabelValues(queue).Inc()
	c.segmentsRemoved.WithLabelValues(queue).Add(float64(segmentsRemoved))
	c.bytesFreed.WithLabelValues(queue).Add(float64(bytesFreed))
}

// UpdateArchiveSize sets the current total journal size for a queue.
func (c *Collector) UpdateArchiveSize(queue string, bytes int64) {
	if c == nil {
		return
	}
	c.archiveBytes.WithLabelValues(queue).Set(float64(bytes))
}

// UpdateReaderState sets a reader's current head and done-set size.
func (c *Collector) UpdateReaderState(queue, readerName string, head uint64, doneSetSize int) {
	if c == nil {
		return
	}
	c.readerHead.WithLabelValues(queue, readerName).Set(float64(head))
	c.readerBehind.WithLabelValues(queue, readerName).Set(float64(doneSetSize))
}

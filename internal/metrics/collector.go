package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueStats provides the collector access to the transcription worker pool.
type QueueStats interface {
	PendingJobs() int
	CompletedJobs() int64
	FailedJobs() int64
}

// WatcherStats provides the collector access to the directory watcher.
type WatcherStats interface {
	FilesProcessed() int64
	FilesFailed() int64
}

// SubscriberStats reports live SSE subscribers.
type SubscriberStats interface {
	SubscriberCount() int
}

// Collector implements prometheus.Collector to read live gauges at scrape time.
type Collector struct {
	queue   QueueStats
	watcher WatcherStats
	subs    SubscriberStats

	queuePending   *prometheus.Desc
	queueCompleted *prometheus.Desc
	queueFailed    *prometheus.Desc
	watchProcessed *prometheus.Desc
	watchFailed    *prometheus.Desc
	sseSubscribers *prometheus.Desc
}

// NewCollector creates a collector that reads live state at scrape time.
// Any source may be nil; its series then report 0.
func NewCollector(queue QueueStats, watcher WatcherStats, subs SubscriberStats) *Collector {
	return &Collector{
		queue:   queue,
		watcher: watcher,
		subs:    subs,
		queuePending: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcribe_queue", "pending"),
			"Transcription jobs waiting for a worker.",
			nil, nil,
		),
		queueCompleted: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcribe_queue", "completed_total"),
			"Transcription jobs completed by the worker pool.",
			nil, nil,
		),
		queueFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "transcribe_queue", "failed_total"),
			"Transcription jobs that failed in the worker pool.",
			nil, nil,
		),
		watchProcessed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watcher", "files_processed_total"),
			"Files handled by the directory watcher.",
			nil, nil,
		),
		watchFailed: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "watcher", "files_failed_total"),
			"Files the directory watcher could not handle.",
			nil, nil,
		),
		sseSubscribers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "sse_subscribers_active"),
			"Current number of SSE subscribers.",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.queuePending
	ch <- c.queueCompleted
	ch <- c.queueFailed
	ch <- c.watchProcessed
	ch <- c.watchFailed
	ch <- c.sseSubscribers
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	var (
		pending           int
		completed, failed int64
		processed, wfail  int64
		subs              int
	)
	if c.queue != nil {
		pending, completed, failed = c.queue.PendingJobs(), c.queue.CompletedJobs(), c.queue.FailedJobs()
	}
	if c.watcher != nil {
		processed, wfail = c.watcher.FilesProcessed(), c.watcher.FilesFailed()
	}
	if c.subs != nil {
		subs = c.subs.SubscriberCount()
	}

	ch <- prometheus.MustNewConstMetric(c.queuePending, prometheus.GaugeValue, float64(pending))
	ch <- prometheus.MustNewConstMetric(c.queueCompleted, prometheus.CounterValue, float64(completed))
	ch <- prometheus.MustNewConstMetric(c.queueFailed, prometheus.CounterValue, float64(failed))
	ch <- prometheus.MustNewConstMetric(c.watchProcessed, prometheus.CounterValue, float64(processed))
	ch <- prometheus.MustNewConstMetric(c.watchFailed, prometheus.CounterValue, float64(wfail))
	ch <- prometheus.MustNewConstMetric(c.sseSubscribers, prometheus.GaugeValue, float64(subs))
}

// Package metrics exposes Prometheus instrumentation for the task
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nexusdata/nexusdata/internal/queue"
)

var (
	// tasksAdmitted counts tasks accepted into the queue by type.
	tasksAdmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusdata_tasks_admitted_total",
		Help: "Total number of tasks admitted to the queue by type",
	}, []string{"type"})

	// tasksRejected counts admissions refused because the queue was full.
	tasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusdata_tasks_rejected_total",
		Help: "Total number of task admissions rejected by queue backpressure",
	}, []string{"type"})

	// tasksFinished counts terminal task outcomes by type and status.
	tasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusdata_tasks_finished_total",
		Help: "Total number of tasks reaching a terminal status",
	}, []string{"type", "status"})

	// taskDuration tracks handler wall time per task type.
	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nexusdata_task_duration_seconds",
		Help:    "Wall time from dispatch to finalization by task type",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"type"})

	// queueWaiting gauges the current queue backlog.
	queueWaiting = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexusdata_queue_waiting",
		Help: "Number of entries waiting in the admission queue",
	})

	// queueProcessing gauges the current in-flight population.
	queueProcessing = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexusdata_queue_processing",
		Help: "Number of entries between dequeue and completion",
	})

	// callbackDeliveries counts callback POST outcomes.
	callbackDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexusdata_callback_deliveries_total",
		Help: "Total number of callback delivery attempts by outcome",
	}, []string{"outcome"})

	// recordsPurged counts records removed by the retention sweep.
	recordsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexusdata_records_purged_total",
		Help: "Total number of task records removed by the retention sweep",
	})
)

// TaskAdmitted records one accepted admission.
func TaskAdmitted(taskType string) {
	tasksAdmitted.WithLabelValues(taskType).Inc()
}

// TaskRejected records one queue-full rejection.
func TaskRejected(taskType string) {
	tasksRejected.WithLabelValues(taskType).Inc()
}

// TaskFinished records one terminal outcome.
func TaskFinished(taskType, status string) {
	tasksFinished.WithLabelValues(taskType, status).Inc()
}

// ObserveTaskDuration records one handler execution time in seconds.
func ObserveTaskDuration(taskType string, seconds float64) {
	taskDuration.WithLabelValues(taskType).Observe(seconds)
}

// CallbackDelivered records one delivery attempt outcome, "ok" or
// "failed".
func CallbackDelivered(outcome string) {
	callbackDeliveries.WithLabelValues(outcome).Inc()
}

// RecordsPurged adds the size of one sweep pass.
func RecordsPurged(count int) {
	recordsPurged.Add(float64(count))
}

// SetQueueStatus refreshes the queue gauges from a snapshot.
func SetQueueStatus(status queue.Status) {
	queueWaiting.Set(float64(status.Waiting))
	queueProcessing.Set(float64(status.Processing))
}

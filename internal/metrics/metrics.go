// Package metrics exposes Prometheus collectors for story operations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/story-cms-api/internal/models"
)

// Outcome labels
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeExists     = "already_exists"
	OutcomeIndex      = "index_out_of_range"
	OutcomeCorrupt    = "corrupt_document"
	OutcomeError      = "error"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	importRecords *prometheus.CounterVec
}

// NewRegistry creates a registry with the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storycms_operations_total",
				Help: "Total number of story operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storycms_operation_duration_seconds",
				Help:    "Duration of story operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		importRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storycms_import_records_total",
				Help: "Total number of imported records by result.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.operations, m.duration, m.importRecords)
	return m
}

// Observe records one operation that started at start and ended with err
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordImport counts the created and failed records of one import
func (m *Metrics) RecordImport(created, failed int) {
	if m == nil {
		return
	}
	m.importRecords.WithLabelValues("created").Add(float64(created))
	m.importRecords.WithLabelValues("failed").Add(float64(failed))
}

// Outcome maps an error to its outcome label
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, models.ErrValidation):
		return OutcomeValidation
	case errors.Is(err, models.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		return OutcomeExists
	case errors.Is(err, models.ErrIndexOutOfRange):
		return OutcomeIndex
	case errors.Is(err, models.ErrCorruptDocument):
		return OutcomeCorrupt
	default:
		return OutcomeError
	}
}

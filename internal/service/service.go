// Package service orchestrates the warehouse flows on top of the pure
// transforms: file ingest into dimension tables, the fact-table rebuild and
// the top-seller aggregate. HTTP handlers and CLI commands call this layer;
// it owns persistence, locking and metrics, while internal/etl stays pure.
package service

import (
	"time"

	"ordersetl/internal/metrics"
	"ordersetl/internal/storage"
)

// Logger is the minimal logging surface the service needs. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Options configures a Service. Zero values get sane defaults.
type Options struct {
	// PreviewRows is how many rows table previews return. Default 5.
	PreviewRows int

	Logger  Logger
	Metrics metrics.Backend
}

// Service owns one Repository and serializes rebuilds per target table.
type Service struct {
	repo        storage.Repository
	log         Logger
	metrics     metrics.Backend
	previewRows int

	rebuilds *targetLocks
}

func New(repo storage.Repository, opts Options) *Service {
	previewRows := opts.PreviewRows
	if previewRows <= 0 {
		previewRows = 5
	}
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	var m metrics.Backend = metrics.Nop{}
	if opts.Metrics != nil {
		m = opts.Metrics
	}
	return &Service{
		repo:        repo,
		log:         logger,
		metrics:     m,
		previewRows: previewRows,
		rebuilds:    newTargetLocks(),
	}
}

// observeStep records the shared counter/duration pair every flow emits.
func (s *Service) observeStep(step, status string, started time.Time, labels metrics.Labels) {
	l := metrics.Labels{"step": step, "status": status}
	for k, v := range labels {
		l[k] = v
	}
	s.metrics.IncCounter(metrics.StepTotal, 1, l)
	s.metrics.ObserveHistogram(metrics.StepDurationSeconds, time.Since(started).Seconds(), l)
}

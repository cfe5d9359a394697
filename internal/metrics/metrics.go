// Package metrics defines the minimal metrics surface the warehouse code
// depends on. Concrete backends (Datadog, or the no-op default) live in
// subpackages so the core never imports vendor SDKs.
package metrics

// Labels are metric dimensions, e.g. {"step": "ingest", "entity": "sellers"}.
type Labels map[string]string

// Backend receives metric observations. Implementations must be safe for
// concurrent use; the HTTP handlers and rebuild flows share one backend.
type Backend interface {
	// IncCounter adds delta to a named counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a named distribution.
	ObserveHistogram(name string, value float64, labels Labels)

	// Close flushes any buffered observations and releases resources.
	Close() error
}

// Metric names shared by the service and the backends. Backends may ignore
// names they do not understand.
const (
	StepTotal           = "warehouse_step_total"
	StepDurationSeconds = "warehouse_step_duration_seconds"
	RecordsTotal        = "warehouse_records_total"
	HTTPRequestsTotal   = "warehouse_http_requests_total"
	HTTPDurationSeconds = "warehouse_http_request_duration_seconds"
)

// Nop is a Backend that discards everything. Used when metrics are disabled.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}

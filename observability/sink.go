// CLAUDE:SUMMARY Pipeline-facing adapter combining the audit logger and metrics manager.
package observability

import "time"

// PipelineSink bundles the audit logger and metrics manager behind the
// observer surface the ingestion manager expects.
type PipelineSink struct {
	Audits  *AuditLogger
	Metrics *MetricsManager
}

// Metric records one datapoint. Nil-safe when metrics are disabled.
func (s *PipelineSink) Metric(name string, value float64, unit string) {
	if s.Metrics != nil {
		s.Metrics.Record(name, value, unit)
	}
}

// Audit records an operation outcome. Nil-safe when auditing is disabled.
func (s *PipelineSink) Audit(operation, userID, document string, err error, d time.Duration) {
	if s.Audits == nil {
		return
	}
	e := &AuditEntry{
		Operation:  operation,
		UserID:     userID,
		Document:   document,
		DurationMs: d.Milliseconds(),
	}
	if err != nil {
		e.Status = "error"
		e.ErrorMessage = err.Error()
	}
	s.Audits.LogAsync(e)
}

// Close stops both sinks, flushing buffered records.
func (s *PipelineSink) Close() error {
	if s.Audits != nil {
		if err := s.Audits.Close(); err != nil {
			return err
		}
	}
	if s.Metrics != nil {
		return s.Metrics.Close()
	}
	return nil
}

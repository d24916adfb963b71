// CLAUDE:SUMMARY DDL for the SQLite observability database (audit trail + metrics timeseries).
// Package observability provides SQLite-native audit and metrics sinks
// for the ingestion pipeline.
//
// Both components write to a shared observability database, kept
// separate from the document catalog to avoid write contention. Call
// Init() on the shared *sql.DB first, then pass it to the constructors.
//
// Persistence is async and non-blocking: a full buffer falls back to a
// synchronous insert for audit entries and drops metric datapoints
// rather than applying backpressure to ingestion.
package observability

import "database/sql"

// Schema contains the complete DDL for the observability tables.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    operation TEXT NOT NULL,
    user_id TEXT,
    document TEXT,
    status TEXT NOT NULL,
    error_message TEXT,
    duration_ms INTEGER,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_log(user_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);

CREATE TABLE IF NOT EXISTS metrics_timeseries (
    metric_id TEXT PRIMARY KEY DEFAULT ('met_' || hex(randomblob(16))),
    metric_name TEXT NOT NULL,
    timestamp INTEGER NOT NULL,
    value REAL NOT NULL,
    unit TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_metrics_name_time
    ON metrics_timeseries(metric_name, timestamp DESC);
`

// Init applies the observability schema to the given database.
func Init(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}

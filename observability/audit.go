// CLAUDE:SUMMARY Async batched audit trail for ingestion operations.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/citeflow/citeflow/idgen"
)

// AuditEntry is a single ingestion operation record.
type AuditEntry struct {
	EntryID      string
	Timestamp    time.Time
	Operation    string // e.g. "process", "delete"
	UserID       string
	Document     string
	Status       string // "success" or "error"
	ErrorMessage string
	DurationMs   int64
}

// AuditLogger persists operation-level audit entries asynchronously.
type AuditLogger struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan *AuditEntry
	stop  chan struct{}
	done  chan struct{}
}

// NewAuditLogger creates an async audit logger. Recommended bufferSize: 1000.
func NewAuditLogger(db *sql.DB, bufferSize int) *AuditLogger {
	a := &AuditLogger{
		db:    db,
		newID: idgen.Prefixed("aud_", idgen.Default),
		ch:    make(chan *AuditEntry, bufferSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go a.flushLoop()
	return a
}

// Log inserts an audit entry synchronously.
func (a *AuditLogger) Log(ctx context.Context, entry *AuditEntry) error {
	a.fillDefaults(entry)
	return a.insert(ctx, entry)
}

// LogAsync queues an entry for async persistence.
// Falls back to a synchronous insert if the buffer is full.
func (a *AuditLogger) LogAsync(entry *AuditEntry) {
	a.fillDefaults(entry)
	select {
	case a.ch <- entry:
	default:
		slog.Warn("audit buffer full, sync fallback", "operation", entry.Operation)
		if err := a.insert(context.Background(), entry); err != nil {
			slog.Error("audit sync fallback failed", "error", err)
		}
	}
}

// Recent returns the newest entries for a user, newest first. Pass an
// empty userID for all users.
func (a *AuditLogger) Recent(ctx context.Context, userID string, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT entry_id, timestamp, operation, user_id, document,
		status, error_message, duration_ms FROM audit_log`
	var args []interface{}
	if userID != "" {
		q += " WHERE user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var ts int64
		var userID, document, errMsg sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&e.EntryID, &ts, &e.Operation, &userID, &document,
			&e.Status, &errMsg, &durationMs); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0)
		e.UserID = userID.String
		e.Document = document.String
		e.ErrorMessage = errMsg.String
		e.DurationMs = durationMs.Int64
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes audit entries older than retentionDays.
func (a *AuditLogger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	result, err := a.db.ExecContext(ctx, "DELETE FROM audit_log WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup audit log: %w", err)
	}
	return result.RowsAffected()
}

// Close drains the buffer and stops the flush goroutine.
func (a *AuditLogger) Close() error {
	close(a.stop)
	<-a.done
	return nil
}

func (a *AuditLogger) fillDefaults(e *AuditEntry) {
	if e.EntryID == "" {
		e.EntryID = a.newID()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Status == "" {
		if e.ErrorMessage != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (a *AuditLogger) flushLoop() {
	defer close(a.done)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	batch := make([]*AuditEntry, 0, 100)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			slog.Error("audit flush: begin tx", "error", err)
			return
		}
		for _, e := range batch {
			if _, err := tx.ExecContext(ctx, insertAuditSQL,
				e.EntryID, e.Timestamp.Unix(), e.Operation, e.UserID,
				e.Document, e.Status, e.ErrorMessage, e.DurationMs); err != nil {
				slog.Error("audit flush: insert", "error", err, "entry_id", e.EntryID)
			}
		}
		if err := tx.Commit(); err != nil {
			slog.Error("audit flush: commit", "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-a.stop:
			for {
				select {
				case e := <-a.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-a.ch:
			batch = append(batch, e)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

const insertAuditSQL = `INSERT INTO audit_log
	(entry_id, timestamp, operation, user_id, document, status, error_message, duration_ms)
	VALUES (?,?,?,?,?,?,?,?)`

func (a *AuditLogger) insert(ctx context.Context, e *AuditEntry) error {
	_, err := a.db.ExecContext(ctx, insertAuditSQL,
		e.EntryID, e.Timestamp.Unix(), e.Operation, e.UserID,
		e.Document, e.Status, e.ErrorMessage, e.DurationMs)
	return err
}

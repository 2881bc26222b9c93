package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"
)

// Log appends attempt lifecycle events (started, submitted, graded) to
// the append-only event_log table. It satisfies quiz.Recorder; append
// failures are logged and swallowed so the audit trail never blocks the
// flow it observes.
type Log struct {
	db *sql.DB
}

func NewLog(db *sql.DB) *Log { return &Log{db: db} }

func (l *Log) Record(ctx context.Context, typ, key string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(payload), time.Now().Unix())
	if err != nil {
		log.Printf("audit: append %s %s: %v", typ, key, err)
	}
}

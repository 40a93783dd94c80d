package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Per-dependency outcomes recorded for an aggregation.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeFatal    = "fatal"
)

// Record captures one aggregation so that every response the service
// produced can be reconstructed later.
type Record struct {
	AuditID         string            `json:"audit_id"`
	RequestID       string            `json:"request_id"`
	Timestamp       time.Time         `json:"timestamp"`
	Outcomes        map[string]string `json:"outcomes"`
	FatalDependency string            `json:"fatal_dependency,omitempty"`
	Environment     string            `json:"environment"`
	Hash            string            `json:"hash"`
}

// ComputeHash returns the integrity hash over the record's content,
// excluding the hash field itself.
func (r Record) ComputeHash() string {
	r.Hash = ""
	content, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Trail is a bounded in-memory audit log. Oldest records are dropped once
// the capacity is reached.
type Trail struct {
	mutex    sync.RWMutex
	records  []Record
	capacity int
	logger   *slog.Logger
}

func NewTrail(capacity int, logger *slog.Logger) *Trail {
	if capacity < 1 {
		capacity = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Trail{
		capacity: capacity,
		logger:   logger,
	}
}

// Append stamps, hashes, and stores the record, returning the stored copy.
func (t *Trail) Append(record Record) Record {
	if record.AuditID == "" {
		record.AuditID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	record.Hash = record.ComputeHash()

	t.mutex.Lock()
	t.records = append(t.records, record)
	if len(t.records) > t.capacity {
		t.records = t.records[1:]
	}
	t.mutex.Unlock()

	t.logger.Debug("Audit record stored",
		slog.String("audit_id", record.AuditID),
		slog.String("request_id", record.RequestID))

	return record
}

// Records returns a copy of the stored records, oldest first.
func (t *Trail) Records() []Record {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of stored records.
func (t *Trail) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return len(t.records)
}

// Handler serves the audit trail as JSON.
func (t *Trail) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(t.Records()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the service.
const (
	ActionRoleRequested  = "role.requested"
	ActionRoleApproved   = "role.approved"
	ActionRoleRejected   = "role.rejected"
	ActionActionDispatch = "action.dispatched"
)

// Entry represents an audit log entry.
type Entry struct {
	ID            string
	Actor         string
	Role          string
	Action        string
	ResourceType  string
	ResourceID    string
	CorrelationID string
	Metadata      json.RawMessage
	PayloadDigest string
	CreatedAt     time.Time
}

// Logger writes audit entries.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

// NewID generates a random audit id.
func NewID() string {
	return "audit-" + uuid.NewString()
}

// DigestJSON computes a SHA256 hex digest for metadata payloads.
func DigestJSON(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Metadata marshals v for Entry.Metadata, dropping values that cannot be encoded.
func Metadata(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func normalize(entry Entry) Entry {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}
	return entry
}

// LogWriter writes audit entries to a standard logger when no database is configured.
type LogWriter struct {
	logger *log.Logger
}

// NewLogWriter constructs a log-backed audit writer.
func NewLogWriter(logger *log.Logger) *LogWriter {
	if logger == nil {
		logger = log.Default()
	}
	return &LogWriter{logger: logger}
}

// Log writes an audit entry as one log line.
func (w *LogWriter) Log(ctx context.Context, entry Entry) error {
	entry = normalize(entry)
	w.logger.Printf("audit: id=%s action=%s actor=%s resource=%s/%s corr=%s metadata=%s",
		entry.ID, entry.Action, entry.Actor, entry.ResourceType, entry.ResourceID, entry.CorrelationID, string(entry.Metadata))
	return nil
}

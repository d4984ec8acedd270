package audit

import (
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"attendr/internal/pkg/parser"
)

const (
	ActionUserCreated   = "user.created"
	ActionUserUpdated   = "user.updated"
	ActionUserDeleted   = "user.deleted"
	ActionPhotoUploaded = "user.photo_uploaded"
	ActionParentSaved   = "parent.saved"
	ActionParentLinked  = "parent.linked"
	ActionCardGenerated = "card.generated"
)

type Entry struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Action        string                 `json:"action"`
	ResourceType  string                 `json:"resource_type"`
	ResourceID    string                 `json:"resource_id"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	IPAddress     string                 `json:"ip_address"`
	UserAgent     string                 `json:"-"`
	ClientOS      string                 `json:"client_os"`
	ClientBrowser string                 `json:"client_browser"`
	CreatedAt     int64                  `json:"created_at"`
}

type Logger struct {
	db *sql.DB
	wg sync.WaitGroup
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Record stores e in the background. Failures are logged and dropped.
func (l *Logger) Record(e Entry) {
	if e.ID == "" {
		e.ID = "audit_" + uuid.New().String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	if e.UserAgent != "" {
		e.ClientOS, e.ClientBrowser = parser.ParseUserAgent(e.UserAgent)
	}
	meta, err := json.Marshal(e.Metadata)
	if err != nil || e.Metadata == nil {
		meta = []byte("{}")
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("recovered while writing audit entry")
			}
		}()

		_, err := l.db.Exec(`
			INSERT INTO audit_logs (id, user_id, action, resource_type, resource_id, metadata, ip_address, client_os, client_browser, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.UserID, e.Action, e.ResourceType, e.ResourceID, string(meta), e.IPAddress, e.ClientOS, e.ClientBrowser, e.CreatedAt)
		if err != nil {
			log.Error().Err(err).Str("action", e.Action).Msg("failed to write audit entry")
		}
	}()
}

// Flush waits for pending writes.
func (l *Logger) Flush() {
	l.wg.Wait()
}

// List returns the newest entries first, optionally for one action.
func (l *Logger) List(action string, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `SELECT id, user_id, action, resource_type, resource_id, metadata, ip_address, client_os, client_browser, created_at FROM audit_logs`
	args := []interface{}{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		e := &Entry{}
		var meta string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &meta, &e.IPAddress, &e.ClientOS, &e.ClientBrowser, &e.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" && meta != "{}" {
			json.Unmarshal([]byte(meta), &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

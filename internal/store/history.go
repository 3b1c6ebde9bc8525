package store

import (
	"database/sql"
	"encoding/json"

	_ "github.com/glebarez/go-sqlite"
	"github.com/tmc/langchaingo/llms"
)

type HistoryStore struct {
	DB *sql.DB
}

func NewHistoryStore(dbPath string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT,
			role TEXT,
			content TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT,
			query TEXT,
			trace TEXT,
			answer TEXT,
			partial INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS watches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT,
			query TEXT,
			interval_seconds INTEGER,
			one_time INTEGER DEFAULT 0,
			last_run DATETIME,
			status TEXT DEFAULT 'active'
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &HistoryStore{DB: db}, nil
}

func (h *HistoryStore) AddMessage(chatID string, role string, content string) error {
	query := `INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)`
	_, err := h.DB.Exec(query, chatID, role, content)
	return err
}

// SaveRun records a finished query execution. The trace is stored as
// JSON so past runs can be inspected or replayed.
func (h *HistoryStore) SaveRun(chatID, userQuery string, trace any, answer string, partial bool) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	query := `INSERT INTO runs (chat_id, query, trace, answer, partial) VALUES (?, ?, ?, ?, ?)`
	_, err = h.DB.Exec(query, chatID, userQuery, string(data), answer, partial)
	return err
}

// RecentRuns returns the newest runs for a chat, newest first.
func (h *HistoryStore) RecentRuns(chatID string, limit int) ([]Run, error) {
	query := `SELECT id, chat_id, query, trace, answer, partial, created_at
		FROM runs WHERE chat_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := h.DB.Query(query, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.ChatID, &r.Query, &r.Trace, &r.Answer, &r.Partial, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (h *HistoryStore) AddWatch(chatID, userQuery string, intervalSeconds int, oneTime bool) error {
	query := `INSERT INTO watches (chat_id, query, interval_seconds, one_time, last_run) VALUES (?, ?, ?, ?, datetime('now', '-365 days'))`
	_, err := h.DB.Exec(query, chatID, userQuery, intervalSeconds, oneTime)
	return err
}

// GetPendingWatches returns active watches whose interval has elapsed.
func (h *HistoryStore) GetPendingWatches() ([]Watch, error) {
	query := `
		SELECT id, chat_id, query, interval_seconds, one_time
		FROM watches
		WHERE status = 'active'
		AND (last_run IS NULL OR (julianday('now') - julianday(last_run)) * 86400 >= interval_seconds)`
	rows, err := h.DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []Watch
	for rows.Next() {
		var w Watch
		if err := rows.Scan(&w.ID, &w.ChatID, &w.Query, &w.IntervalSeconds, &w.OneTime); err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

func (h *HistoryStore) UpdateWatchLastRun(id int) error {
	query := `UPDATE watches SET last_run = datetime('now') WHERE id = ?`
	_, err := h.DB.Exec(query, id)
	return err
}

func (h *HistoryStore) ListWatches(chatID string) ([]Watch, error) {
	query := `SELECT id, chat_id, query, interval_seconds, one_time FROM watches WHERE chat_id = ? AND status = 'active'`
	rows, err := h.DB.Query(query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []Watch
	for rows.Next() {
		var w Watch
		if err := rows.Scan(&w.ID, &w.ChatID, &w.Query, &w.IntervalSeconds, &w.OneTime); err != nil {
			return nil, err
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

func (h *HistoryStore) DeleteWatch(id int) error {
	query := `DELETE FROM watches WHERE id = ?`
	_, err := h.DB.Exec(query, id)
	return err
}

func (h *HistoryStore) ClearWatches(chatID string) error {
	query := `DELETE FROM watches WHERE chat_id = ?`
	_, err := h.DB.Exec(query, chatID)
	return err
}

func (h *HistoryStore) GetHistory(chatID string, limit int) ([]llms.MessageContent, error) {
	query := `SELECT role, content FROM messages WHERE chat_id = ? ORDER BY timestamp DESC LIMIT ?`
	rows, err := h.DB.Query(query, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []llms.MessageContent
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}

		var msgRole llms.ChatMessageType
		switch role {
		case "human":
			msgRole = llms.ChatMessageTypeHuman
		case "ai":
			msgRole = llms.ChatMessageTypeAI
		case "system":
			msgRole = llms.ChatMessageTypeSystem
		default:
			msgRole = llms.ChatMessageTypeHuman
		}

		history = append(history, llms.MessageContent{
			Role: msgRole,
			Parts: []llms.ContentPart{
				llms.TextPart(content),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	return history, nil
}

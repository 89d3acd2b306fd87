package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

// SQLiteStore implements ConversationStore on a local SQLite file. It backs
// the development server where no DynamoDB table is available.
type SQLiteStore struct {
	db *sql.DB
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type interactionRow struct {
	DateTime string `json:"date_time"`
	Type     string `json:"type"`
	Content  string `json:"content"`
}

// NewSQLite opens (and if needed creates) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("repository: sqlite path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("repository: create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository: initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const query = `
	CREATE TABLE IF NOT EXISTS conversation (
		mobile TEXT NOT NULL,
		cr_date TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		access_token TEXT NOT NULL,
		interactions TEXT,
		PRIMARY KEY (mobile, cr_date)
	);`
	_, err := s.db.Exec(query)
	return err
}

// GetConversation returns the conversation for mobile on date, or nil when
// none has been recorded.
func (s *SQLiteStore) GetConversation(ctx context.Context, mobile, date string) (*domain.Conversation, error) {
	return getConversation(ctx, s.db, mobile, date)
}

func getConversation(ctx context.Context, q rowQuerier, mobile, date string) (*domain.Conversation, error) {
	row := q.QueryRowContext(ctx,
		`SELECT mobile, cr_date, name, access_token, interactions FROM conversation WHERE mobile = ? AND cr_date = ?`,
		mobile, date)

	var conv domain.Conversation
	var interactions sql.NullString
	err := row.Scan(&conv.Mobile, &conv.CreatedDate, &conv.Name, &conv.AccessToken, &interactions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation scan: %w", err)
	}

	if interactions.Valid && interactions.String != "" {
		var rows []interactionRow
		if err := json.Unmarshal([]byte(interactions.String), &rows); err != nil {
			return nil, fmt.Errorf("repository: GetConversation decode interactions: %w", err)
		}
		for _, r := range rows {
			conv.Interactions = append(conv.Interactions, domain.Interaction{
				DateTime: r.DateTime,
				Type:     domain.InteractionType(r.Type),
				Content:  r.Content,
			})
		}
	}
	return &conv, nil
}

// CreateConversation inserts conv; an existing row for the same key yields
// domain.ErrConversationExists.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	if conv.Mobile == "" || conv.CreatedDate == "" {
		return errors.New("repository: CreateConversation: mobile and date are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation (mobile, cr_date, name, access_token) VALUES (?, ?, ?, ?)`,
		conv.Mobile, conv.CreatedDate, conv.Name, conv.AccessToken)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("repository: CreateConversation: %w", domain.ErrConversationExists)
		}
		return fmt.Errorf("repository: CreateConversation: %w", err)
	}
	return nil
}

// AppendInteraction records a user interaction on an existing conversation.
// Used by the development server in place of the queue consumer.
func (s *SQLiteStore) AppendInteraction(ctx context.Context, mobile, date string, in domain.Interaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repository: AppendInteraction begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	conv, err := getConversation(ctx, tx, mobile, date)
	if err != nil {
		return err
	}
	if conv == nil {
		return fmt.Errorf("repository: AppendInteraction: no conversation for %s on %s", mobile, date)
	}

	rows := make([]interactionRow, 0, len(conv.Interactions)+1)
	for _, i := range append(conv.Interactions, in) {
		rows = append(rows, interactionRow{DateTime: i.DateTime, Type: string(i.Type), Content: i.Content})
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("repository: AppendInteraction encode: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversation SET interactions = ? WHERE mobile = ? AND cr_date = ?`,
		string(raw), mobile, date); err != nil {
		return fmt.Errorf("repository: AppendInteraction: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("repository: AppendInteraction commit: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

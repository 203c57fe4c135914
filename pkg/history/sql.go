package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/germanamz/autoprompt/pkg/chats/message"
	"github.com/germanamz/autoprompt/pkg/chats/role"
)

var _ Store = (*SQLStore)(nil)

// Record is one persisted message row. Rows of a session are ordered by ID.
type Record struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"index;not null"`
	Role      string    `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName keeps the table name stable regardless of gorm's naming strategy.
func (Record) TableName() string { return "message_store" }

// SQLStore persists session logs in a relational database through gorm.
// Writes are serialized per session id.
type SQLStore struct {
	db    *gorm.DB
	locks locks
}

// NewSQLStore wraps an open gorm connection and migrates the message table.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// OpenSQLite opens (or creates) the SQLite database at path.
func OpenSQLite(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	return NewSQLStore(db)
}

// Close releases the underlying database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("history: close: %w", err)
	}
	return sqlDB.Close()
}

// Get returns the handle for sessionID.
func (s *SQLStore) Get(sessionID string) Handle {
	return sqlHandle{store: s, id: sessionID}
}

type sqlHandle struct {
	store *SQLStore
	id    string
}

func (h sqlHandle) Messages(ctx context.Context) ([]message.Message, error) {
	var rows []Record
	err := h.store.db.WithContext(ctx).
		Where("session_id = ?", h.id).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: session %s: load: %w", h.id, err)
	}

	out := make([]message.Message, 0, len(rows))
	for _, r := range rows {
		out = append(out, message.New(role.Role(r.Role), r.Content))
	}
	return out, nil
}

func (h sqlHandle) Append(ctx context.Context, msgs ...message.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	mu := h.store.locks.get(h.id)
	mu.Lock()
	defer mu.Unlock()

	rows := make([]Record, len(msgs))
	for i, m := range msgs {
		rows[i] = Record{SessionID: h.id, Role: m.Role.String(), Content: m.Content}
	}

	if err := h.store.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("history: session %s: append: %w", h.id, err)
	}
	return nil
}

func (h sqlHandle) Clear(ctx context.Context) error {
	mu := h.store.locks.get(h.id)
	mu.Lock()
	defer mu.Unlock()

	err := h.store.db.WithContext(ctx).
		Where("session_id = ?", h.id).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("history: session %s: clear: %w", h.id, err)
	}
	return nil
}

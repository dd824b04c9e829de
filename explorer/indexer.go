package explorer

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"nftloans/core/events"
	"nftloans/core/types"
)

// EventRecord is one emitted lifecycle event persisted for audit queries.
type EventRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Type       string    `gorm:"index"`
	Attributes string    // JSON-encoded attribute map
	CreatedAt  time.Time `gorm:"index"`
}

// Indexer subscribes to engine events and mirrors them into a SQLite table.
// Indexing is best-effort: a failed insert is logged and never propagates
// back into the lifecycle operation that emitted the event.
type Indexer struct {
	db  *gorm.DB
	log *slog.Logger
}

// Open creates or opens the index database at the given path and runs the
// schema migration.
func Open(path string, log *slog.Logger) (*Indexer, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, err
	}
	return &Indexer{db: db, log: log}, nil
}

// Emit implements events.Emitter.
func (ix *Indexer) Emit(evt events.Event) {
	if ix == nil || ix.db == nil || evt == nil {
		return
	}
	record := EventRecord{Type: evt.EventType(), CreatedAt: time.Now().UTC()}
	if provider, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := provider.Event(); payload != nil {
			encoded, err := json.Marshal(payload.Attributes)
			if err != nil {
				ix.log.Warn("failed to encode event attributes", "type", record.Type, "error", err)
			} else {
				record.Attributes = string(encoded)
			}
		}
	}
	if err := ix.db.Create(&record).Error; err != nil {
		ix.log.Warn("failed to index event", "type", record.Type, "error", err)
	}
}

// Recent returns up to limit events, newest first.
func (ix *Indexer) Recent(limit int) ([]EventRecord, error) {
	if ix == nil || ix.db == nil {
		return nil, gorm.ErrInvalidDB
	}
	if limit <= 0 {
		limit = 50
	}
	var records []EventRecord
	err := ix.db.Order("id desc").Limit(limit).Find(&records).Error
	return records, err
}

var _ events.Emitter = (*Indexer)(nil)

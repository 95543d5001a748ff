package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is one committed contract event.
type Event struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Digest   string    `gorm:"size:64;uniqueIndex" json:"-"`
	TxHash   string    `gorm:"size:64;index" json:"tx_hash"`
	Height   uint64    `gorm:"index" json:"height"`
	Position int       `gorm:"column:event_index" json:"index"`
	Type     string    `gorm:"size:64;index" json:"type"`
	Contract string    `gorm:"size:64;index" json:"contract,omitempty"`
	Sender   string    `gorm:"size:64;index" json:"sender,omitempty"`
	Action   string    `gorm:"size:64;index" json:"action,omitempty"`
	// Attributes is the JSON-encoded attribute map.
	Attributes string    `gorm:"type:text" json:"attributes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Block records a produced block.
type Block struct {
	Height    uint64 `gorm:"primaryKey;autoIncrement:false"`
	Time      uint64
	ChainID   string `gorm:"size:64"`
	CreatedAt time.Time
}

// KeeperRun records an epoch keeper attempt.
type KeeperRun struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Height    uint64    `gorm:"index"`
	TxHash    string    `gorm:"size:64"`
	Error     string    `gorm:"type:text"`
	CreatedAt time.Time
}

// AutoMigrate creates or updates the indexer tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Event{}, &Block{}, &KeeperRun{})
}

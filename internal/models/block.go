package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Block implements user blocking. A single directional row hides content in
// both directions.
type Block struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlockerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair;index" json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Block) TableName() string {
	return "blocks"
}

func (b *Block) BeforeCreate(*gorm.DB) error {
	assignID(&b.ID)
	return nil
}

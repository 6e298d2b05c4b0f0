package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteEvent is one append-only record of an applied vote transition
type VoteEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TermID    uint      `gorm:"not null;index" json:"term_id"`
	VoterID   uint      `gorm:"not null;index" json:"voter_id"`
	AuthorID  uint      `gorm:"not null" json:"author_id"`
	Action    string    `gorm:"type:varchar(16);not null" json:"action"`
	FromState string    `gorm:"type:varchar(8);not null" json:"from_state"`
	ToState   string    `gorm:"type:varchar(8);not null" json:"to_state"`
	Delta     int       `gorm:"not null" json:"delta"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (VoteEvent) TableName() string {
	return "vote_events"
}

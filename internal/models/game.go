package models

import "time"

// Game is an entry in the admin-curated list of supported games
type Game struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"not null" json:"game_name"`
	NameKey   string    `gorm:"uniqueIndex;not null" json:"-"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Icon      string    `json:"game_icon"`
	Version   uint      `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Game) TableName() string {
	return "games"
}

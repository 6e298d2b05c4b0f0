package models

import (
	"strings"
	"time"
)

// Role is a user's privilege level
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// User represents a registered glossary contributor
type User struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	Username       string    `gorm:"not null" json:"username"`
	UsernameKey    string    `gorm:"uniqueIndex;not null" json:"-"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	Role           Role      `gorm:"type:varchar(16);not null;default:regular" json:"role"`
	TotalRating    int       `gorm:"not null;default:0;index" json:"total_rating"`
	FavGames       string    `json:"fav_games"`
	FavCompetitors string    `json:"fav_competitors"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated identity a request acts as
type Actor struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor may edit or delete content owned by ownerID
func (a Actor) CanModify(ownerID uint) bool {
	return a.UserID == ownerID || a.IsAdmin()
}

// ActorOf builds the request identity for a stored user
func ActorOf(u *User) Actor {
	return Actor{UserID: u.ID, Username: u.Username, Role: u.Role}
}

// NormalizeKey is the case-insensitive uniqueness key for usernames and game names
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

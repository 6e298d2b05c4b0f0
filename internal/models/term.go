package models

import (
	"time"

	"github.com/lib/pq"
)

// VisibilityThreshold is the rating a term must exceed to appear in default listings
const VisibilityThreshold = -2

// Term is a user-submitted definition scoped to one game
type Term struct {
	ID              uint          `gorm:"primarykey" json:"id"`
	Header          string        `gorm:"not null;index" json:"term_header"`
	GameID          uint          `gorm:"not null;index" json:"game_id"`
	ShortDefinition string        `gorm:"not null" json:"short_definition"`
	LongDescription string        `json:"long_description"`
	VideoLink       string        `json:"youtube_link"`
	SubmittedBy     uint          `gorm:"not null;index" json:"submitted_by"`
	SubmittedAt     time.Time     `gorm:"not null" json:"submission_date"`
	Rating          int           `gorm:"not null;index" json:"rating"`
	UpvotedBy       pq.Int64Array `gorm:"type:bigint[];not null;default:'{}'" json:"upvoted_by"`
	DownvotedBy     pq.Int64Array `gorm:"type:bigint[];not null;default:'{}'" json:"downvoted_by"`
	Version         uint          `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Term) TableName() string {
	return "terms"
}

// Visible reports whether the term passes the default listing threshold
func (t Term) Visible() bool {
	return t.Rating > VisibilityThreshold
}

// Clone returns a copy that shares no membership slices with t
func (t Term) Clone() Term {
	c := t
	c.UpvotedBy = append(pq.Int64Array(nil), t.UpvotedBy...)
	c.DownvotedBy = append(pq.Int64Array(nil), t.DownvotedBy...)
	return c
}

// TermContent holds the fields an editor may replace
type TermContent struct {
	Header          string
	GameID          uint
	ShortDefinition string
	LongDescription string
	VideoLink       string
}

// TermOrder selects the sort order of a term listing
type TermOrder int

const (
	// OrderAlphabetical sorts by header ascending, then rating descending
	OrderAlphabetical TermOrder = iota
	// OrderTopRated sorts by rating descending, then header ascending
	OrderTopRated
)

// TermQuery filters a term scan. Zero values mean "no filter".
type TermQuery struct {
	GameID    uint
	AuthorID  uint
	Prefix    string
	OnlyShown bool
	Order     TermOrder
}

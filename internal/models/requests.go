package models

import "time"

// TermForm is the submit/edit definition form payload
type TermForm struct {
	Header          string `form:"term_header" validate:"required,max=60"`
	GameName        string `form:"game_name" validate:"required,max=80"`
	ShortDefinition string `form:"short_definition" validate:"required,max=280"`
	LongDescription string `form:"long_description" validate:"max=5000"`
	VideoLink       string `form:"youtube_link" validate:"omitempty,url,max=300"`
	Version         uint   `form:"version"`
}

// GameForm is the add/edit game form payload
type GameForm struct {
	Name    string `form:"game_name" validate:"required,max=80"`
	Icon    string `form:"game_icon" validate:"max=200"`
	Version uint   `form:"version"`
}

// RegisterForm is the registration form payload
type RegisterForm struct {
	Username        string `form:"username" validate:"required,min=3,max=30"`
	Password        string `form:"password" validate:"required,min=8,max=72"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
	FavGames        string `form:"fav_games" validate:"max=200"`
	FavCompetitors  string `form:"fav_competitors" validate:"max=200"`
}

// LoginForm is the login form payload
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// EditUserForm is the account details form payload
type EditUserForm struct {
	Username       string `form:"username" validate:"required,min=3,max=30"`
	Password       string `form:"password" validate:"required"`
	NewPassword    string `form:"new_password" validate:"omitempty,min=8,max=72"`
	FavGames       string `form:"fav_games" validate:"max=200"`
	FavCompetitors string `form:"fav_competitors" validate:"max=200"`
}

// ContactForm is the contact page payload
type ContactForm struct {
	Name    string `form:"name" validate:"required,max=80"`
	Email   string `form:"email" validate:"required,email"`
	Message string `form:"message" validate:"required,max=2000"`
}

// Flash is a transient user-facing message
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// TermView is a term decorated for display
type TermView struct {
	ID              uint      `json:"id"`
	Header          string    `json:"term_header"`
	GameID          uint      `json:"game_id"`
	GameName        string    `json:"game_name"`
	ShortDefinition string    `json:"short_definition"`
	LongDescription string    `json:"long_description,omitempty"`
	VideoLink       string    `json:"youtube_link,omitempty"`
	SubmittedBy     uint      `json:"submitted_by"`
	AuthorName      string    `json:"author"`
	SubmittedAt     time.Time `json:"submission_date"`
	Rating          int       `json:"rating"`
	MyVote          string    `json:"my_vote,omitempty"`
	CanEdit         bool      `json:"can_edit"`
	Version         uint      `json:"version"`
}

// TermListResponse is the glossary listing view
type TermListResponse struct {
	Terms    []TermView `json:"terms"`
	Games    []Game     `json:"games"`
	User     *Actor     `json:"user,omitempty"`
	Messages []Flash    `json:"messages,omitempty"`
}

// ProfileResponse is the public profile view
type ProfileResponse struct {
	UserID         uint       `json:"user_id"`
	Username       string     `json:"username"`
	TotalRating    int        `json:"total_rating"`
	FavGames       string     `json:"fav_games"`
	FavCompetitors string     `json:"fav_competitors"`
	Terms          []TermView `json:"terms"`
	TopRated       []TermView `json:"toprated"`
	Messages       []Flash    `json:"messages,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gamedict/internal/models"
	"gamedict/internal/vote"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostgresRepository handles all PostgreSQL operations
type PostgresRepository struct {
	db *gorm.DB
}

// NewPostgresRepository creates a new Postgres repository.
// The gorm.DB should be opened with TranslateError so unique violations map to ErrDuplicate.
func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// Transaction runs fn inside a database transaction
func (r *PostgresRepository) Transaction(ctx context.Context, fn func(tx Store) error, opts ...*sql.TxOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresRepository{db: tx})
	}, opts...)
}

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.UsernameKey = models.NormalizeKey(user.Username)
	if user.Role == "" {
		user.Role = models.RoleRegular
	}
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// FindUserByID retrieves a user by primary key
func (r *PostgresRepository) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUserByUsername retrieves a user by username, ignoring case
func (r *PostgresRepository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username_key = ?", models.NormalizeKey(username)).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindUsersByIDs retrieves the users with the given ids, keyed by id
func (r *PostgresRepository) FindUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// ListUsers retrieves all users (used by the reconciler)
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Order("total_rating DESC, id ASC").Find(&users).Error
	return users, err
}

// UpdateUserProfile replaces the editable account fields
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"username":        user.Username,
		"username_key":    models.NormalizeKey(user.Username),
		"password_hash":   user.PasswordHash,
		"fav_games":       user.FavGames,
		"fav_competitors": user.FavCompetitors,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUserRating adds delta to total_rating in a single UPDATE
func (r *PostgresRepository) IncrementUserRating(ctx context.Context, id uint, delta int) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		UpdateColumn("total_rating", gorm.Expr("total_rating + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateGame inserts a new game
func (r *PostgresRepository) CreateGame(ctx context.Context, game *models.Game) error {
	game.NameKey = models.NormalizeKey(game.Name)
	game.Version = 1
	return translate(r.db.WithContext(ctx).Create(game).Error)
}

// FindGameByID retrieves a game by primary key
func (r *PostgresRepository) FindGameByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

// FindGameByName retrieves a game by name, ignoring case
func (r *PostgresRepository) FindGameByName(ctx context.Context, name string) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).Where("name_key = ?", models.NormalizeKey(name)).First(&game).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

// FindGameBySlug retrieves a game by its URL slug
func (r *PostgresRepository) FindGameBySlug(ctx context.Context, slug string) (*models.Game, error) {
	var game models.Game
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&game).Error; err != nil {
		return nil, translate(err)
	}
	return &game, nil
}

// ListGames retrieves all games sorted by name
func (r *PostgresRepository) ListGames(ctx context.Context) ([]models.Game, error) {
	var games []models.Game
	err := r.db.WithContext(ctx).Order("name_key ASC").Find(&games).Error
	return games, err
}

// UpdateGame replaces name, slug and icon, guarded by the version stamp
func (r *PostgresRepository) UpdateGame(ctx context.Context, game *models.Game) error {
	res := r.db.WithContext(ctx).Model(&models.Game{}).
		Where("id = ? AND version = ?", game.ID, game.Version).
		Updates(map[string]interface{}{
			"name":     game.Name,
			"name_key": models.NormalizeKey(game.Name),
			"slug":     game.Slug,
			"icon":     game.Icon,
			"version":  gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindGameByID(ctx, game.ID); err != nil {
			return err
		}
		return ErrStale
	}
	game.Version++
	return nil
}

// DeleteGame removes a game. Terms must be removed by the caller first.
func (r *PostgresRepository) DeleteGame(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Game{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateTerm inserts a new term
func (r *PostgresRepository) CreateTerm(ctx context.Context, term *models.Term) error {
	if term.UpvotedBy == nil {
		term.UpvotedBy = []int64{}
	}
	if term.DownvotedBy == nil {
		term.DownvotedBy = []int64{}
	}
	term.Version = 1
	return translate(r.db.WithContext(ctx).Create(term).Error)
}

// FindTermByID retrieves a term by primary key
func (r *PostgresRepository) FindTermByID(ctx context.Context, id uint) (*models.Term, error) {
	var term models.Term
	if err := r.db.WithContext(ctx).First(&term, id).Error; err != nil {
		return nil, translate(err)
	}
	return &term, nil
}

// LockTerm loads a term with SELECT ... FOR UPDATE
func (r *PostgresRepository) LockTerm(ctx context.Context, id uint) (*models.Term, error) {
	var term models.Term
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&term, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &term, nil
}

// LockTermsByGame loads a game's terms with SELECT ... FOR UPDATE
func (r *PostgresRepository) LockTermsByGame(ctx context.Context, gameID uint) ([]models.Term, error) {
	var terms []models.Term
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("game_id = ?", gameID).Order("id ASC").Find(&terms).Error
	return terms, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListTerms scans terms matching q in the requested order
func (r *PostgresRepository) ListTerms(ctx context.Context, q models.TermQuery) ([]models.Term, error) {
	tx := r.db.WithContext(ctx).Model(&models.Term{})
	if q.OnlyShown {
		tx = tx.Where("rating > ?", models.VisibilityThreshold)
	}
	if q.GameID != 0 {
		tx = tx.Where("game_id = ?", q.GameID)
	}
	if q.AuthorID != 0 {
		tx = tx.Where("submitted_by = ?", q.AuthorID)
	}
	if q.Prefix != "" {
		tx = tx.Where("header LIKE ?", likeEscaper.Replace(strings.ToUpper(q.Prefix))+"%")
	}

	switch q.Order {
	case models.OrderTopRated:
		tx = tx.Order("rating DESC").Order("header ASC")
	default:
		tx = tx.Order("header ASC").Order("rating DESC")
	}

	var terms []models.Term
	err := tx.Order("id ASC").Find(&terms).Error
	return terms, err
}

// UpdateTermContent replaces content fields, guarded by the version stamp.
// Rating, vote sets, author and submission date are never written here.
func (r *PostgresRepository) UpdateTermContent(ctx context.Context, id, version uint, content models.TermContent) (*models.Term, error) {
	res := r.db.WithContext(ctx).Model(&models.Term{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"header":           content.Header,
			"game_id":          content.GameID,
			"short_definition": content.ShortDefinition,
			"long_description": content.LongDescription,
			"video_link":       content.VideoLink,
			"version":          gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindTermByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrStale
	}
	return r.FindTermByID(ctx, id)
}

// ApplyTermVote applies the rating delta and membership ops in one UPDATE
func (r *PostgresRepository) ApplyTermVote(ctx context.Context, id, voter uint, out vote.Outcome) (*models.Term, error) {
	updates := map[string]interface{}{
		"rating": gorm.Expr("rating + ?", out.Delta),
	}
	if expr, ok := membershipExpr("upvoted_by", out.Up, voter); ok {
		updates["upvoted_by"] = expr
	}
	if expr, ok := membershipExpr("downvoted_by", out.Down, voter); ok {
		updates["downvoted_by"] = expr
	}

	res := r.db.WithContext(ctx).Model(&models.Term{}).Where("id = ?", id).UpdateColumns(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindTermByID(ctx, id)
}

// membershipExpr builds the add-unique / remove array expression for one set
func membershipExpr(column string, op vote.Op, voter uint) (clause.Expr, bool) {
	switch op {
	case vote.Add:
		return gorm.Expr(
			fmt.Sprintf("array_append(array_remove(%s, CAST(? AS bigint)), CAST(? AS bigint))", column),
			int64(voter), int64(voter),
		), true
	case vote.Remove:
		return gorm.Expr(fmt.Sprintf("array_remove(%s, CAST(? AS bigint))", column), int64(voter)), true
	}
	return clause.Expr{}, false
}

// DeleteTerm removes a term
func (r *PostgresRepository) DeleteTerm(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Term{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTermsByGame removes every term referencing the game
func (r *PostgresRepository) DeleteTermsByGame(ctx context.Context, gameID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("game_id = ?", gameID).Delete(&models.Term{})
	return res.RowsAffected, res.Error
}

// InsertVoteEvent appends a vote event to the audit log
func (r *PostgresRepository) InsertVoteEvent(ctx context.Context, event *models.VoteEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CountVoteEvents returns the number of logged events for a term
func (r *PostgresRepository) CountVoteEvents(ctx context.Context, termID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.VoteEvent{}).Where("term_id = ?", termID).Count(&count).Error
	return count, err
}

// Ping checks if database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (r *PostgresRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&models.User{}, &models.Game{}, &models.Term{}, &models.VoteEvent{})
}

// translate maps gorm errors onto the repository's sentinel errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

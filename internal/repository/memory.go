package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"gamedict/internal/models"
	"gamedict/internal/vote"
)

// MemoryStore is an in-process Store used by tests and STORE_DRIVER=memory.
// Transactions serialize on a single mutex and roll back from a snapshot.
type MemoryStore struct {
	state *memState
	inTx  bool
}

type memState struct {
	mu       sync.Mutex
	users    map[uint]models.User
	games    map[uint]models.Game
	terms    map[uint]models.Term
	events   []models.VoteEvent
	nextUser uint
	nextGame uint
	nextTerm uint
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			users: make(map[uint]models.User),
			games: make(map[uint]models.Game),
			terms: make(map[uint]models.Term),
		},
	}
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.state.mu.Lock()
	return s.state.mu.Unlock
}

// Transaction runs fn with exclusive access, restoring the previous state if
// fn fails. Every transaction is already serializable, so opts are ignored.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error, _ ...*sql.TxOptions) error {
	if s.inTx {
		return fn(s)
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	snap := s.state.snapshot()
	if err := fn(&MemoryStore{state: s.state, inTx: true}); err != nil {
		s.state.restore(snap)
		return err
	}
	return nil
}

func (st *memState) snapshot() *memState {
	snap := &memState{
		users:    make(map[uint]models.User, len(st.users)),
		games:    make(map[uint]models.Game, len(st.games)),
		terms:    make(map[uint]models.Term, len(st.terms)),
		events:   append([]models.VoteEvent(nil), st.events...),
		nextUser: st.nextUser,
		nextGame: st.nextGame,
		nextTerm: st.nextTerm,
	}
	for k, v := range st.users {
		snap.users[k] = v
	}
	for k, v := range st.games {
		snap.games[k] = v
	}
	for k, v := range st.terms {
		snap.terms[k] = v.Clone()
	}
	return snap
}

func (st *memState) restore(snap *memState) {
	st.users = snap.users
	st.games = snap.games
	st.terms = snap.terms
	st.events = snap.events
	st.nextUser = snap.nextUser
	st.nextGame = snap.nextGame
	st.nextTerm = snap.nextTerm
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	defer s.lock()()

	key := models.NormalizeKey(user.Username)
	for _, u := range s.state.users {
		if u.UsernameKey == key {
			return ErrDuplicate
		}
	}

	s.state.nextUser++
	now := time.Now()
	user.ID = s.state.nextUser
	user.UsernameKey = key
	if user.Role == "" {
		user.Role = models.RoleRegular
	}
	user.CreatedAt, user.UpdatedAt = now, now
	s.state.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	defer s.lock()()

	u, ok := s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer s.lock()()

	key := models.NormalizeKey(username)
	for _, u := range s.state.users {
		if u.UsernameKey == key {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	defer s.lock()()

	out := make(map[uint]models.User, len(ids))
	for _, id := range ids {
		if u, ok := s.state.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *MemoryStore) ListUsers(ctx context.Context) ([]models.User, error) {
	defer s.lock()()

	users := make([]models.User, 0, len(s.state.users))
	for _, u := range s.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].TotalRating != users[j].TotalRating {
			return users[i].TotalRating > users[j].TotalRating
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *MemoryStore) UpdateUserProfile(ctx context.Context, user *models.User) error {
	defer s.lock()()

	cur, ok := s.state.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	key := models.NormalizeKey(user.Username)
	for id, u := range s.state.users {
		if id != user.ID && u.UsernameKey == key {
			return ErrDuplicate
		}
	}

	cur.Username = user.Username
	cur.UsernameKey = key
	cur.PasswordHash = user.PasswordHash
	cur.FavGames = user.FavGames
	cur.FavCompetitors = user.FavCompetitors
	cur.UpdatedAt = time.Now()
	s.state.users[user.ID] = cur
	return nil
}

func (s *MemoryStore) IncrementUserRating(ctx context.Context, id uint, delta int) error {
	defer s.lock()()

	u, ok := s.state.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TotalRating += delta
	s.state.users[id] = u
	return nil
}

func (s *MemoryStore) gameTaken(id uint, nameKey, slug string) bool {
	for gid, g := range s.state.games {
		if gid != id && (g.NameKey == nameKey || g.Slug == slug) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateGame(ctx context.Context, game *models.Game) error {
	defer s.lock()()

	key := models.NormalizeKey(game.Name)
	if s.gameTaken(0, key, game.Slug) {
		return ErrDuplicate
	}

	s.state.nextGame++
	now := time.Now()
	game.ID = s.state.nextGame
	game.NameKey = key
	game.Version = 1
	game.CreatedAt, game.UpdatedAt = now, now
	s.state.games[game.ID] = *game
	return nil
}

func (s *MemoryStore) FindGameByID(ctx context.Context, id uint) (*models.Game, error) {
	defer s.lock()()

	g, ok := s.state.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (s *MemoryStore) FindGameByName(ctx context.Context, name string) (*models.Game, error) {
	defer s.lock()()

	key := models.NormalizeKey(name)
	for _, g := range s.state.games {
		if g.NameKey == key {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindGameBySlug(ctx context.Context, slug string) (*models.Game, error) {
	defer s.lock()()

	for _, g := range s.state.games {
		if g.Slug == slug {
			return &g, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListGames(ctx context.Context) ([]models.Game, error) {
	defer s.lock()()

	games := make([]models.Game, 0, len(s.state.games))
	for _, g := range s.state.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].NameKey < games[j].NameKey })
	return games, nil
}

func (s *MemoryStore) UpdateGame(ctx context.Context, game *models.Game) error {
	defer s.lock()()

	cur, ok := s.state.games[game.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != game.Version {
		return ErrStale
	}
	key := models.NormalizeKey(game.Name)
	if s.gameTaken(game.ID, key, game.Slug) {
		return ErrDuplicate
	}

	cur.Name = game.Name
	cur.NameKey = key
	cur.Slug = game.Slug
	cur.Icon = game.Icon
	cur.Version++
	cur.UpdatedAt = time.Now()
	s.state.games[game.ID] = cur
	game.Version = cur.Version
	return nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, id uint) error {
	defer s.lock()()

	if _, ok := s.state.games[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.games, id)
	return nil
}

func (s *MemoryStore) CreateTerm(ctx context.Context, term *models.Term) error {
	defer s.lock()()

	s.state.nextTerm++
	now := time.Now()
	term.ID = s.state.nextTerm
	term.Version = 1
	term.CreatedAt, term.UpdatedAt = now, now
	if term.UpvotedBy == nil {
		term.UpvotedBy = []int64{}
	}
	if term.DownvotedBy == nil {
		term.DownvotedBy = []int64{}
	}
	s.state.terms[term.ID] = term.Clone()
	return nil
}

func (s *MemoryStore) FindTermByID(ctx context.Context, id uint) (*models.Term, error) {
	defer s.lock()()
	return s.findTerm(id)
}

func (s *MemoryStore) findTerm(id uint) (*models.Term, error) {
	t, ok := s.state.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := t.Clone()
	return &c, nil
}

// LockTerm is FindTermByID; the transaction already holds the store mutex
func (s *MemoryStore) LockTerm(ctx context.Context, id uint) (*models.Term, error) {
	return s.FindTermByID(ctx, id)
}

func (s *MemoryStore) LockTermsByGame(ctx context.Context, gameID uint) ([]models.Term, error) {
	terms, err := s.ListTerms(ctx, models.TermQuery{GameID: gameID})
	if err != nil {
		return nil, err
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
	return terms, nil
}

func (s *MemoryStore) ListTerms(ctx context.Context, q models.TermQuery) ([]models.Term, error) {
	defer s.lock()()

	prefix := strings.ToUpper(q.Prefix)
	terms := make([]models.Term, 0, len(s.state.terms))
	for _, t := range s.state.terms {
		if q.OnlyShown && !t.Visible() {
			continue
		}
		if q.GameID != 0 && t.GameID != q.GameID {
			continue
		}
		if q.AuthorID != 0 && t.SubmittedBy != q.AuthorID {
			continue
		}
		if prefix != "" && !strings.HasPrefix(t.Header, prefix) {
			continue
		}
		terms = append(terms, t.Clone())
	}

	sort.Slice(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]
		if q.Order == models.OrderTopRated {
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.Header != b.Header {
				return a.Header < b.Header
			}
			return a.ID < b.ID
		}
		if a.Header != b.Header {
			return a.Header < b.Header
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID < b.ID
	})
	return terms, nil
}

func (s *MemoryStore) UpdateTermContent(ctx context.Context, id, version uint, content models.TermContent) (*models.Term, error) {
	defer s.lock()()

	t, ok := s.state.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Version != version {
		return nil, ErrStale
	}

	t.Header = content.Header
	t.GameID = content.GameID
	t.ShortDefinition = content.ShortDefinition
	t.LongDescription = content.LongDescription
	t.VideoLink = content.VideoLink
	t.Version++
	t.UpdatedAt = time.Now()
	s.state.terms[id] = t
	return s.findTerm(id)
}

func (s *MemoryStore) ApplyTermVote(ctx context.Context, id, voter uint, out vote.Outcome) (*models.Term, error) {
	defer s.lock()()

	t, ok := s.state.terms[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Rating += out.Delta
	t.UpvotedBy, t.DownvotedBy = out.Apply(t.UpvotedBy, t.DownvotedBy, int64(voter))
	s.state.terms[id] = t
	return s.findTerm(id)
}

func (s *MemoryStore) DeleteTerm(ctx context.Context, id uint) error {
	defer s.lock()()

	if _, ok := s.state.terms[id]; !ok {
		return ErrNotFound
	}
	delete(s.state.terms, id)
	return nil
}

func (s *MemoryStore) DeleteTermsByGame(ctx context.Context, gameID uint) (int64, error) {
	defer s.lock()()

	var n int64
	for id, t := range s.state.terms {
		if t.GameID == gameID {
			delete(s.state.terms, id)
			n++
		}
	}
	return n, nil
}

// InsertVoteEvent appends a vote event to the in-memory log
func (s *MemoryStore) InsertVoteEvent(ctx context.Context, event *models.VoteEvent) error {
	defer s.lock()()
	s.state.events = append(s.state.events, *event)
	return nil
}

// VoteEvents returns a copy of the logged vote events
func (s *MemoryStore) VoteEvents() []models.VoteEvent {
	defer s.lock()()
	return append([]models.VoteEvent(nil), s.state.events...)
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

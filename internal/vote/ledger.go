package vote

// State is a user's current relationship to one term
type State int

const (
	None State = iota
	Up
	Down
)

func (s State) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Action is one of the two external vote triggers
type Action int

const (
	Upvote Action = iota
	Downvote
)

func (a Action) String() string {
	if a == Downvote {
		return "downvote"
	}
	return "upvote"
}

// Op is a membership mutation applied to one of the term's vote sets
type Op int

const (
	Keep Op = iota
	Add
	Remove
)

// Outcome is the result of one transition: the new state, the rating delta
// applied to both the term and its author, and the membership ops
type Outcome struct {
	From  State
	To    State
	Delta int
	Up    Op
	Down  Op
}

type entry struct {
	to    State
	delta int
}

// table[from][action]
var table = [3][2]entry{
	None: {Upvote: {Up, +1}, Downvote: {Down, -1}},
	Up:   {Upvote: {None, -1}, Downvote: {Down, -2}},
	Down: {Upvote: {Up, +2}, Downvote: {None, +1}},
}

// Transition runs the ledger state machine for one action
func Transition(from State, action Action) Outcome {
	e := table[from][action]
	out := Outcome{From: from, To: e.to, Delta: e.delta}

	switch e.to {
	case Up:
		out.Up, out.Down = Add, Remove
	case Down:
		out.Up, out.Down = Remove, Add
	default:
		out.Up, out.Down = Remove, Remove
	}
	return out
}

// StateOf derives the voter's state from the term's membership sets.
// Membership in both sets never happens through Transition; if it does the
// upvote wins and the next transition clears the downvote.
func StateOf(upvoted, downvoted []int64, voter int64) State {
	if contains(upvoted, voter) {
		return Up
	}
	if contains(downvoted, voter) {
		return Down
	}
	return None
}

// Apply returns new membership sets with the outcome's ops applied for voter.
// The inputs are not modified.
func (o Outcome) Apply(upvoted, downvoted []int64, voter int64) ([]int64, []int64) {
	return applyOp(upvoted, o.Up, voter), applyOp(downvoted, o.Down, voter)
}

func applyOp(set []int64, op Op, voter int64) []int64 {
	out := make([]int64, 0, len(set)+1)
	for _, id := range set {
		if id != voter {
			out = append(out, id)
		}
	}
	switch op {
	case Add:
		out = append(out, voter)
	case Keep:
		if contains(set, voter) {
			out = append(out, voter)
		}
	}
	return out
}

func contains(set []int64, id int64) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

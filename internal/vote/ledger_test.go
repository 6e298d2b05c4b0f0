package vote

import (
	"math/rand"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name   string
		from   State
		action Action
		to     State
		delta  int
	}{
		{"none upvote", None, Upvote, Up, 1},
		{"none downvote", None, Downvote, Down, -1},
		{"up upvote", Up, Upvote, None, -1},
		{"up downvote", Up, Downvote, Down, -2},
		{"down upvote", Down, Upvote, Up, 2},
		{"down downvote", Down, Downvote, None, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Transition(tt.from, tt.action)
			if out.From != tt.from {
				t.Errorf("Expected from %s, got %s", tt.from, out.From)
			}
			if out.To != tt.to {
				t.Errorf("Expected state %s, got %s", tt.to, out.To)
			}
			if out.Delta != tt.delta {
				t.Errorf("Expected delta %d, got %d", tt.delta, out.Delta)
			}
		})
	}
}

func TestTransitionNeverStaysInNone(t *testing.T) {
	for _, a := range []Action{Upvote, Downvote} {
		if got := Transition(None, a).To; got == None {
			t.Errorf("%s from none should leave none", a)
		}
	}
}

func TestApplyMembership(t *testing.T) {
	const voter = 7

	up, down := Transition(None, Upvote).Apply([]int64{1}, nil, voter)
	if StateOf(up, down, voter) != Up || len(up) != 2 || len(down) != 0 {
		t.Fatalf("none->up: got up=%v down=%v", up, down)
	}

	up, down = Transition(Up, Downvote).Apply(up, down, voter)
	if StateOf(up, down, voter) != Down || len(up) != 1 || len(down) != 1 {
		t.Fatalf("up->down: got up=%v down=%v", up, down)
	}

	up, down = Transition(Down, Downvote).Apply(up, down, voter)
	if StateOf(up, down, voter) != None || len(up) != 1 || len(down) != 0 {
		t.Fatalf("down->none: got up=%v down=%v", up, down)
	}
	if up[0] != 1 {
		t.Errorf("Author upvote should be untouched, got %v", up)
	}
}

func TestApplyDoesNotDuplicate(t *testing.T) {
	up, _ := Transition(None, Upvote).Apply([]int64{3, 3}, nil, 3)
	if len(up) != 1 {
		t.Errorf("Expected a single membership entry, got %v", up)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := []int64{1, 2}
	Transition(Up, Upvote).Apply(in, nil, 2)
	if len(in) != 2 || in[1] != 2 {
		t.Errorf("Input slice modified: %v", in)
	}
}

func TestStateOfOverlapPrefersUp(t *testing.T) {
	up, down := []int64{4}, []int64{4}
	if got := StateOf(up, down, 4); got != Up {
		t.Fatalf("Expected up, got %s", got)
	}
	up, down = Transition(Up, Downvote).Apply(up, down, 4)
	if len(up) != 0 || len(down) != 1 {
		t.Errorf("Transition should leave the voter in exactly one set, got up=%v down=%v", up, down)
	}
}

func TestDoubleUpvoteRoundTrip(t *testing.T) {
	rating := 1
	up, down := []int64{1}, []int64{}

	for i := 0; i < 2; i++ {
		out := Transition(StateOf(up, down, 2), Upvote)
		rating += out.Delta
		up, down = out.Apply(up, down, 2)
	}

	if rating != 1 {
		t.Errorf("Expected rating 1 after upvote twice, got %d", rating)
	}
	if StateOf(up, down, 2) != None {
		t.Errorf("Expected voter back in none")
	}
}

// Scenario: author A auto-upvoted, B upvotes, downvotes, downvotes again.
func TestThirdPartyRoundTrip(t *testing.T) {
	const author, b = 1, 2
	rating := 1
	up, down := []int64{author}, []int64{}

	steps := []struct {
		action Action
		delta  int
		rating int
		state  State
	}{
		{Upvote, 1, 2, Up},
		{Downvote, -2, 0, Down},
		{Downvote, 1, 1, None},
	}

	for i, s := range steps {
		out := Transition(StateOf(up, down, b), s.action)
		rating += out.Delta
		up, down = out.Apply(up, down, b)

		if out.Delta != s.delta {
			t.Errorf("step %d: expected delta %d, got %d", i, s.delta, out.Delta)
		}
		if rating != s.rating {
			t.Errorf("step %d: expected rating %d, got %d", i, s.rating, rating)
		}
		if got := StateOf(up, down, b); got != s.state {
			t.Errorf("step %d: expected state %s, got %s", i, s.state, got)
		}
	}

	if len(up) != 1 || up[0] != author || len(down) != 0 {
		t.Errorf("Expected initial membership, got up=%v down=%v", up, down)
	}
}

// Random action sequences from several voters must keep the sets disjoint
// and the rating in lockstep with the membership counts.
func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		rating := 1
		up, down := []int64{1}, []int64{}
		sumDelta := 0

		for step := 0; step < 60; step++ {
			voter := int64(rng.Intn(6) + 1)
			action := Action(rng.Intn(2))

			out := Transition(StateOf(up, down, voter), action)
			rating += out.Delta
			sumDelta += out.Delta
			up, down = out.Apply(up, down, voter)

			for _, u := range up {
				if contains(down, u) {
					t.Fatalf("run %d step %d: voter %d in both sets", run, step, u)
				}
			}
			if rating != len(up)-len(down) {
				t.Fatalf("run %d step %d: rating %d drifted from membership %d-%d",
					run, step, rating, len(up), len(down))
			}
		}

		if sumDelta != rating-1 {
			t.Fatalf("run %d: sum of deltas %d != rating change %d", run, sumDelta, rating-1)
		}
	}
}

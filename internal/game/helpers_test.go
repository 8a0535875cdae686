package game

import (
	"fmt"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return &Engine{Now: func() time.Time { return fixedNow }}
}

func newTestTable(t *testing.T, e *Engine, n int) *TableState {
	t.Helper()
	seats := make([]Seat, 0, n)
	for i := 0; i < n; i++ {
		seats = append(seats, Seat{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)})
	}
	s, err := e.NewTable("g1", DefaultConfig(), seats)
	if err != nil {
		t.Fatalf("new table: %v", err)
	}
	return s
}

// stackedDeck puts first on top in the given order, followed by the rest of a
// canonical deck.
func stackedDeck(t *testing.T, first ...string) Deck {
	t.Helper()
	top := MustParseCards(first...)
	used := map[Card]bool{}
	for _, c := range top {
		if used[c] {
			t.Fatalf("stacked deck repeats %s", c)
		}
		used[c] = true
	}
	out := append(Deck(nil), top...)
	for _, c := range BuildDeck() {
		if !used[c] {
			out = append(out, c)
		}
	}
	return out
}

func mustApply(t *testing.T, e *Engine, s *TableState, a Action) *TableState {
	t.Helper()
	ns, err := e.Apply(s, a)
	if err != nil {
		t.Fatalf("apply %s by %s: %v", a.Type, a.PlayerID, err)
	}
	return ns
}

func act(s *TableState, typ ActionType, amount int64) Action {
	return Action{Type: typ, PlayerID: s.Players[s.CurrentPlayerIndex].ID, Amount: amount, Timestamp: fixedNow}
}

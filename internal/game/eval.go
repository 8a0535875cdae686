package game

import (
	"fmt"
	"sort"
)

type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var categoryNames = map[Category]string{
	HighCard:      "high-card",
	OnePair:       "pair",
	TwoPair:       "two-pair",
	ThreeOfAKind:  "three-of-a-kind",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full-house",
	FourOfAKind:   "four-of-a-kind",
	StraightFlush: "straight-flush",
	RoyalFlush:    "royal-flush",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	for k, v := range categoryNames {
		if v == string(b) {
			*c = k
			return nil
		}
	}
	return fmt.Errorf("unknown hand category %q", string(b))
}

// Score orders hands lexicographically: the category first, then kicker ranks
// in descending significance. Unused trailing slots stay zero. Two hands tie
// exactly when their scores are equal.
type Score [6]int

func (s Score) Compare(o Score) int {
	for i := range s {
		switch {
		case s[i] > o[i]:
			return 1
		case s[i] < o[i]:
			return -1
		}
	}
	return 0
}

type HandRank struct {
	Category Category `json:"category"`
	Score    Score    `json:"score"`
	Cards    []Card   `json:"cards"`
	Label    string   `json:"label"`
}

func (h HandRank) BetterThan(o HandRank) bool {
	return h.Score.Compare(o.Score) > 0
}

func Compare(a, b HandRank) int {
	return a.Score.Compare(b.Score)
}

// Evaluate returns the best five-card hand that can be formed from cards.
func Evaluate(cards []Card) (HandRank, error) {
	if len(cards) < 5 {
		return HandRank{}, ErrInsufficientCards
	}
	seen := make(map[Card]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c]; dup {
			return HandRank{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen[c] = struct{}{}
	}
	if len(cards) == 5 {
		return eval5(cards), nil
	}

	var best HandRank
	hand := make([]Card, 5)
	eachCombination(len(cards), 5, func(idx []int) {
		for i, k := range idx {
			hand[i] = cards[k]
		}
		h := eval5(hand)
		if best.Category == 0 || h.BetterThan(best) {
			best = h
		}
	})
	return best, nil
}

// eachCombination calls fn with every k-subset of [0, n) in lexicographic order.
func eachCombination(n, k int, fn func(idx []int)) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

type rankGroup struct {
	rank  Rank
	count int
}

func eval5(in []Card) HandRank {
	cards := make([]Card, len(in))
	copy(cards, in)
	sort.Slice(cards, func(i, j int) bool {
		if cards[i].Rank != cards[j].Rank {
			return cards[i].Rank > cards[j].Rank
		}
		return cards[i].Suit < cards[j].Suit
	})

	isFlush := true
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			isFlush = false
			break
		}
	}
	isStraight, wheel := straightOf(cards)
	if wheel {
		// ace plays low
		cards = append(cards[1:], cards[0])
	}

	counts := map[Rank]int{}
	for _, c := range cards {
		counts[c.Rank]++
	}
	groups := make([]rankGroup, 0, len(counts))
	for r, n := range counts {
		groups = append(groups, rankGroup{rank: r, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case isFlush && isStraight:
		top := straightRanks(cards, wheel)
		if cards[0].Rank == Ace && cards[1].Rank == King {
			return newHand(RoyalFlush, cards, "Royal Flush", top...)
		}
		return newHand(StraightFlush, cards, fmt.Sprintf("Straight Flush, %s high", cards[0].Rank.Name()), top...)
	case groups[0].count == 4:
		return newHand(FourOfAKind, groupedCards(cards, groups),
			fmt.Sprintf("Four of a Kind, %s", groups[0].rank.Plural()),
			int(groups[0].rank), int(groups[1].rank))
	case groups[0].count == 3 && groups[1].count >= 2:
		return newHand(FullHouse, groupedCards(cards, groups),
			fmt.Sprintf("Full House, %s over %s", groups[0].rank.Plural(), groups[1].rank.Plural()),
			int(groups[0].rank), int(groups[1].rank))
	case isFlush:
		return newHand(Flush, cards, fmt.Sprintf("Flush, %s high", cards[0].Rank.Name()), ranksOf(cards)...)
	case isStraight:
		return newHand(Straight, cards, fmt.Sprintf("Straight, %s high", cards[0].Rank.Name()), straightRanks(cards, wheel)...)
	case groups[0].count == 3:
		return newHand(ThreeOfAKind, groupedCards(cards, groups),
			fmt.Sprintf("Three of a Kind, %s", groups[0].rank.Plural()),
			groupRanks(groups)...)
	case groups[0].count == 2 && groups[1].count == 2:
		return newHand(TwoPair, groupedCards(cards, groups),
			fmt.Sprintf("Two Pair, %s and %s", groups[0].rank.Plural(), groups[1].rank.Plural()),
			groupRanks(groups)...)
	case groups[0].count == 2:
		return newHand(OnePair, groupedCards(cards, groups),
			fmt.Sprintf("Pair of %s", groups[0].rank.Plural()),
			groupRanks(groups)...)
	default:
		return newHand(HighCard, cards, fmt.Sprintf("High Card %s", cards[0].Rank.Name()), ranksOf(cards)...)
	}
}

func newHand(cat Category, cards []Card, label string, kickers ...int) HandRank {
	var s Score
	s[0] = int(cat)
	copy(s[1:], kickers)
	out := make([]Card, len(cards))
	copy(out, cards)
	return HandRank{Category: cat, Score: s, Cards: out, Label: label}
}

// straightOf expects cards sorted by rank descending.
func straightOf(cards []Card) (straight bool, wheel bool) {
	consecutive := true
	for i := 0; i < len(cards)-1; i++ {
		if RankValue(cards[i].Rank)-RankValue(cards[i+1].Rank) != 1 {
			consecutive = false
			break
		}
	}
	if consecutive {
		return true, false
	}
	if cards[0].Rank == Ace && cards[1].Rank == Five && cards[2].Rank == Four && cards[3].Rank == Three && cards[4].Rank == Two {
		return true, true
	}
	return false, false
}

// straightRanks encodes a wheel's ace as 1 so it sorts below a six-high straight.
func straightRanks(cards []Card, wheel bool) []int {
	out := ranksOf(cards)
	if wheel {
		out[len(out)-1] = 1
	}
	return out
}

func ranksOf(cards []Card) []int {
	out := make([]int, 0, len(cards))
	for _, c := range cards {
		out = append(out, RankValue(c.Rank))
	}
	return out
}

func groupRanks(groups []rankGroup) []int {
	out := make([]int, 0, len(groups))
	for _, g := range groups {
		out = append(out, RankValue(g.rank))
	}
	return out
}

func groupedCards(cards []Card, groups []rankGroup) []Card {
	out := make([]Card, 0, len(cards))
	for _, g := range groups {
		for _, c := range cards {
			if c.Rank == g.rank {
				out = append(out, c)
			}
		}
	}
	return out
}

package game

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

type Suit int

type Rank int

const (
	Hearts Suit = iota
	Diamonds
	Clubs
	Spades
)

const (
	Two   Rank = 2
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14
)

const DeckSize = 52

var (
	rankSymbols = map[Rank]string{
		Two: "2", Three: "3", Four: "4", Five: "5", Six: "6", Seven: "7", Eight: "8", Nine: "9", Ten: "T", Jack: "J", Queen: "Q", King: "K", Ace: "A",
	}
	rankNames = map[Rank]string{
		Two: "Two", Three: "Three", Four: "Four", Five: "Five", Six: "Six", Seven: "Seven", Eight: "Eight", Nine: "Nine", Ten: "Ten", Jack: "Jack", Queen: "Queen", King: "King", Ace: "Ace",
	}
	suitSymbols = map[Suit]string{Hearts: "h", Diamonds: "d", Clubs: "c", Spades: "s"}
	suitNames   = map[Suit]string{Hearts: "hearts", Diamonds: "diamonds", Clubs: "clubs", Spades: "spades"}
)

func (s Suit) String() string {
	if n, ok := suitNames[s]; ok {
		return n
	}
	return fmt.Sprintf("suit(%d)", int(s))
}

// RankValue is the ordering every comparison uses: 2..10, J=11, Q=12, K=13, A=14.
func RankValue(r Rank) int {
	return int(r)
}

func (r Rank) Valid() bool {
	return r >= Two && r <= Ace
}

func (r Rank) Name() string {
	return rankNames[r]
}

// Plural is used in hand labels ("Pair of Sixes").
func (r Rank) Plural() string {
	if r == Six {
		return "Sixes"
	}
	return rankNames[r] + "s"
}

type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string {
	return rankSymbols[c.Rank] + suitSymbols[c.Suit]
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.Rank.Valid() {
		return nil, fmt.Errorf("invalid card rank %d", c.Rank)
	}
	if _, ok := suitSymbols[c.Suit]; !ok {
		return nil, fmt.Errorf("invalid card suit %d", c.Suit)
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(b []byte) error {
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard reads the two-character form produced by Card.String, e.g. "As" or "Td".
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var out Card
	found := false
	for r, sym := range rankSymbols {
		if strings.EqualFold(sym, s[:1]) {
			out.Rank = r
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card rank in %q", s)
	}
	found = false
	for su, sym := range suitSymbols {
		if strings.EqualFold(sym, s[1:]) {
			out.Suit = su
			found = true
			break
		}
	}
	if !found {
		return Card{}, fmt.Errorf("invalid card suit in %q", s)
	}
	return out, nil
}

// MustParseCards panics on malformed input; intended for fixtures.
func MustParseCards(list ...string) []Card {
	out := make([]Card, 0, len(list))
	for _, s := range list {
		c, err := ParseCard(s)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

// Deck is the ordered remainder still to be dealt. Dealing always takes from the front.
type Deck []Card

func BuildDeck() Deck {
	cards := make(Deck, 0, DeckSize)
	for s := Hearts; s <= Spades; s++ {
		for r := Two; r <= Ace; r++ {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Shuffle returns a uniformly random permutation of d using Fisher-Yates.
// Indices are drawn from src (crypto/rand when nil) by rejection sampling over
// 32-bit words, so no residue class is favoured the way a bare modulo would.
func Shuffle(d Deck, src io.Reader) (Deck, error) {
	if src == nil {
		src = rand.Reader
	}
	out := make(Deck, len(d))
	copy(out, d)
	for i := len(out) - 1; i > 0; i-- {
		j, err := uniformIndex(src, uint32(i+1))
		if err != nil {
			return nil, fmt.Errorf("shuffle: %w", err)
		}
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func uniformIndex(src io.Reader, n uint32) (uint32, error) {
	const space = uint64(1) << 32
	limit := space - space%uint64(n)
	var buf [4]byte
	for {
		if _, err := io.ReadFull(src, buf[:]); err != nil {
			return 0, err
		}
		v := binary.BigEndian.Uint32(buf[:])
		if uint64(v) < limit {
			return v % n, nil
		}
	}
}

func (d Deck) Deal(n int) ([]Card, Deck, error) {
	if n < 0 || n > len(d) {
		return nil, d, ErrInsufficientCards
	}
	dealt := make([]Card, n)
	copy(dealt, d[:n])
	remaining := make(Deck, len(d)-n)
	copy(remaining, d[n:])
	return dealt, remaining, nil
}

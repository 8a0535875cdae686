package game

import "time"

const (
	MinPlayers = 2
	MaxPlayers = 8
	HoleCards  = 2
)

type GameType string

const (
	GameTexasHoldem GameType = "texas-holdem"
	GameGinRummy    GameType = "gin-rummy"
	GameBlackjack   GameType = "blackjack"
	GameWar         GameType = "war"
	GameGoFish      GameType = "go-fish"
	GameCrazyEights GameType = "crazy-eights"
)

type GameStatus string

const (
	GameWaiting   GameStatus = "waiting"
	GameActive    GameStatus = "active"
	GameCompleted GameStatus = "completed"
)

type PlayerStatus string

const (
	PlayerActive PlayerStatus = "active"
	PlayerFolded PlayerStatus = "folded"
	PlayerAllIn  PlayerStatus = "all-in"
	// PlayerDisconnected is owned by presence management; the engine only skips it.
	PlayerDisconnected PlayerStatus = "disconnected"
)

type Street string

const (
	StreetPreFlop  Street = "pre-flop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

type Config struct {
	SmallBlind    int64 `json:"small_blind"`
	BigBlind      int64 `json:"big_blind"`
	StartingChips int64 `json:"starting_chips"`
}

func DefaultConfig() Config {
	return Config{SmallBlind: 10, BigBlind: 20, StartingChips: 1000}
}

func (c Config) Validate() error {
	if c.SmallBlind <= 0 || c.BigBlind <= 0 || c.StartingChips <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Seat is what a caller supplies to put someone at the table.
type Seat struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Player struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Hand       []Card       `json:"hand"`
	Chips      int64        `json:"chips"`
	CurrentBet int64        `json:"current_bet"`
	Committed  int64        `json:"committed"`
	Status     PlayerStatus `json:"status"`
	Position   int          `json:"position"`
	LastAction ActionType   `json:"last_action,omitempty"`
}

type Payout struct {
	PlayerID string   `json:"player_id"`
	Amount   int64    `json:"amount"`
	Category Category `json:"category,omitempty"`
	Label    string   `json:"label,omitempty"`
	Cards    []Card   `json:"cards,omitempty"`
}

type HandResult struct {
	Uncontested bool     `json:"uncontested"`
	Payouts     []Payout `json:"payouts"`
}

// TableState is the aggregate root for one game. Transitions never modify a
// TableState in place; they return a fresh copy.
type TableState struct {
	ID                 string      `json:"id"`
	Type               GameType    `json:"type"`
	HostID             string      `json:"host_id"`
	Status             GameStatus  `json:"status"`
	Players            []*Player   `json:"players"`
	Deck               Deck        `json:"deck"`
	CommunityCards     []Card      `json:"community_cards"`
	Pot                int64       `json:"pot"`
	CurrentBet         int64       `json:"current_bet"`
	DealerIndex        int         `json:"dealer_index"`
	SmallBlindIndex    int         `json:"small_blind_index"`
	BigBlindIndex      int         `json:"big_blind_index"`
	CurrentPlayerIndex int         `json:"current_player_index"`
	Round              Street      `json:"round"`
	SmallBlind         int64       `json:"small_blind"`
	BigBlind           int64       `json:"big_blind"`
	StartingChips      int64       `json:"starting_chips"`
	HandNumber         int         `json:"hand_number"`
	Result             *HandResult `json:"result,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (s *TableState) Clone() *TableState {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make([]*Player, len(s.Players))
	for i, p := range s.Players {
		cp := *p
		cp.Hand = append([]Card(nil), p.Hand...)
		out.Players[i] = &cp
	}
	out.Deck = append(Deck(nil), s.Deck...)
	out.CommunityCards = append([]Card(nil), s.CommunityCards...)
	if s.Result != nil {
		res := HandResult{Uncontested: s.Result.Uncontested, Payouts: make([]Payout, len(s.Result.Payouts))}
		for i, p := range s.Result.Payouts {
			p.Cards = append([]Card(nil), p.Cards...)
			res.Payouts[i] = p
		}
		out.Result = &res
	}
	return &out
}

func (s *TableState) PlayerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Contenders are the players still eligible for the pot.
func (s *TableState) Contenders() []int {
	out := make([]int, 0, len(s.Players))
	for i, p := range s.Players {
		if p.Status == PlayerActive || p.Status == PlayerAllIn {
			out = append(out, i)
		}
	}
	return out
}

func (s *TableState) countStatus(st PlayerStatus) int {
	n := 0
	for _, p := range s.Players {
		if p.Status == st {
			n++
		}
	}
	return n
}

// ChipsInPlay is every chip at the table: stacks plus the pot.
func (s *TableState) ChipsInPlay() int64 {
	total := s.Pot
	for _, p := range s.Players {
		total += p.Chips
	}
	return total
}

// nextSeat returns the first seat after from (wrapping) with status st, or -1.
func (s *TableState) nextSeat(from int, st PlayerStatus) int {
	n := len(s.Players)
	for step := 1; step <= n; step++ {
		i := ((from+step)%n + n) % n
		if s.Players[i].Status == st {
			return i
		}
	}
	return -1
}

package game

import (
	"io"
	"strings"
	"time"
)

// Engine applies Texas Hold'em transitions. It keeps no per-game state: every
// method takes a snapshot and returns a new one, leaving the input untouched.
// Random is the shuffle source (crypto/rand when nil).
type Engine struct {
	Random io.Reader
	Now    func() time.Time
}

func NewEngine() *Engine {
	return &Engine{Now: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now().UTC()
	}
	return e.Now().UTC()
}

func SupportsGame(t GameType) error {
	if t != GameTexasHoldem {
		return ErrUnsupportedGame
	}
	return nil
}

func (e *Engine) NewTable(id string, cfg Config, seats []Seat) (*TableState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(seats) < 1 || len(seats) > MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	now := e.now()
	s := &TableState{
		ID:            id,
		Type:          GameTexasHoldem,
		HostID:        seats[0].ID,
		Status:        GameWaiting,
		Players:       make([]*Player, 0, len(seats)),
		Round:         StreetPreFlop,
		SmallBlind:    cfg.SmallBlind,
		BigBlind:      cfg.BigBlind,
		StartingChips: cfg.StartingChips,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, seat := range seats {
		if err := addSeat(s, seat, cfg.StartingChips); err != nil {
			return nil, err
		}
	}
	s.SmallBlindIndex, s.BigBlindIndex = blindSeats(s.DealerIndex, len(s.Players))
	return s, nil
}

func addSeat(s *TableState, seat Seat, chips int64) error {
	if strings.TrimSpace(seat.ID) == "" {
		return ErrInvalidPlayerDetails
	}
	if s.PlayerIndex(seat.ID) >= 0 {
		return ErrDuplicatePlayer
	}
	s.Players = append(s.Players, &Player{
		ID:       seat.ID,
		Name:     seat.Name,
		Chips:    chips,
		Status:   PlayerActive,
		Position: len(s.Players),
	})
	return nil
}

// blindSeats returns the two seats after the dealer. Heads-up that puts the
// big blind on the button.
func blindSeats(dealer, n int) (int, int) {
	if n <= 0 {
		return 0, 0
	}
	return (dealer + 1) % n, (dealer + 2) % n
}

func (e *Engine) Join(s *TableState, seat Seat) (*TableState, error) {
	if s.Status != GameWaiting {
		return nil, ErrGameNotWaiting
	}
	if len(s.Players) >= MaxPlayers {
		return nil, ErrTableFull
	}
	ns := s.Clone()
	if err := addSeat(ns, seat, ns.StartingChips); err != nil {
		return nil, err
	}
	ns.SmallBlindIndex, ns.BigBlindIndex = blindSeats(ns.DealerIndex, len(ns.Players))
	ns.UpdatedAt = e.now()
	return ns, nil
}

// Leave removes a seat before the hand starts. Departures during a hand are
// presence changes and never delete a player.
func (e *Engine) Leave(s *TableState, playerID string) (*TableState, error) {
	if s.Status != GameWaiting {
		return nil, ErrGameNotWaiting
	}
	idx := s.PlayerIndex(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	if len(s.Players) == 1 {
		return nil, ErrInvalidPlayerCount
	}
	ns := s.Clone()
	ns.Players = append(ns.Players[:idx], ns.Players[idx+1:]...)
	for i, p := range ns.Players {
		p.Position = i
	}
	if ns.HostID == playerID {
		ns.HostID = ns.Players[0].ID
	}
	if ns.DealerIndex >= len(ns.Players) {
		ns.DealerIndex = 0
	}
	ns.SmallBlindIndex, ns.BigBlindIndex = blindSeats(ns.DealerIndex, len(ns.Players))
	ns.UpdatedAt = e.now()
	return ns, nil
}

// Start shuffles a fresh deck and opens the hand.
func (e *Engine) Start(s *TableState) (*TableState, error) {
	if s.Status != GameWaiting {
		return nil, ErrGameNotWaiting
	}
	if n := len(s.Players); n < MinPlayers || n > MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	deck, err := Shuffle(BuildDeck(), e.Random)
	if err != nil {
		return nil, err
	}
	return e.StartWithDeck(s, deck)
}

// StartWithDeck opens the hand dealing from deck in the given order.
func (e *Engine) StartWithDeck(s *TableState, deck Deck) (*TableState, error) {
	if s.Status != GameWaiting {
		return nil, ErrGameNotWaiting
	}
	n := len(s.Players)
	if n < MinPlayers || n > MaxPlayers {
		return nil, ErrInvalidPlayerCount
	}
	if len(deck) < n*HoleCards+5 {
		return nil, ErrInsufficientCards
	}

	ns := s.Clone()
	ns.Deck = append(Deck(nil), deck...)
	ns.CommunityCards = nil
	ns.Pot = 0
	ns.CurrentBet = 0
	ns.Result = nil
	ns.Round = StreetPreFlop
	ns.Status = GameActive
	ns.HandNumber++
	for _, p := range ns.Players {
		p.Hand = make([]Card, 0, HoleCards)
		p.CurrentBet = 0
		p.Committed = 0
		p.Status = PlayerActive
		p.LastAction = ""
	}

	for pass := 0; pass < HoleCards; pass++ {
		for _, p := range ns.Players {
			dealt, rest, err := ns.Deck.Deal(1)
			if err != nil {
				return nil, err
			}
			p.Hand = append(p.Hand, dealt[0])
			ns.Deck = rest
		}
	}

	ns.SmallBlindIndex, ns.BigBlindIndex = blindSeats(ns.DealerIndex, n)
	sb := ns.Players[ns.SmallBlindIndex]
	bb := ns.Players[ns.BigBlindIndex]
	sbPosted := min(sb.Chips, ns.SmallBlind)
	commit(ns, sb, sbPosted)
	bbPosted := min(bb.Chips, ns.BigBlind)
	commit(ns, bb, bbPosted)
	ns.CurrentBet = max(sbPosted, bbPosted)
	ns.UpdatedAt = e.now()

	if bettingComplete(ns) {
		return e.advanceStreet(ns)
	}
	ns.CurrentPlayerIndex = ns.nextSeat(ns.BigBlindIndex, PlayerActive)
	return ns, nil
}

// Apply validates a and returns the resulting state. On error the returned
// state is nil and s is unchanged.
func (e *Engine) Apply(s *TableState, a Action) (*TableState, error) {
	if err := ValidateAction(s, a); err != nil {
		return nil, err
	}
	ns := s.Clone()
	p := ns.Players[ns.CurrentPlayerIndex]
	p.LastAction = a.Type

	switch a.Type {
	case ActionFold:
		p.Status = PlayerFolded
	case ActionCheck:
	case ActionCall:
		commit(ns, p, min(ns.CurrentBet-p.CurrentBet, p.Chips))
	case ActionRaise:
		commit(ns, p, min(a.Amount-p.CurrentBet, p.Chips))
		raiseTo(ns, p)
	case ActionAllIn:
		commit(ns, p, p.Chips)
		p.Status = PlayerAllIn
		raiseTo(ns, p)
	default:
		return nil, ErrInvalidActionType
	}
	ns.UpdatedAt = e.now()
	return e.resolve(ns)
}

// commit moves amount from p's stack into their bet and the pot.
func commit(s *TableState, p *Player, amount int64) {
	if amount <= 0 {
		return
	}
	p.Chips -= amount
	p.CurrentBet += amount
	p.Committed += amount
	s.Pot += amount
	if p.Chips == 0 {
		p.Status = PlayerAllIn
	}
}

// raiseTo lifts the street's bet to p's. The bet never goes down.
func raiseTo(s *TableState, p *Player) {
	if p.CurrentBet > s.CurrentBet {
		s.CurrentBet = p.CurrentBet
	}
}

func (e *Engine) resolve(s *TableState) (*TableState, error) {
	if len(s.Contenders()) == 1 {
		return e.settle(s)
	}
	if bettingComplete(s) {
		return e.advanceStreet(s)
	}
	s.CurrentPlayerIndex = s.nextSeat(s.CurrentPlayerIndex, PlayerActive)
	return s, nil
}

// bettingComplete reports whether every active player has matched the
// street's bet. All-in and folded seats are not waited on.
func bettingComplete(s *TableState) bool {
	for _, p := range s.Players {
		if p.Status == PlayerActive && p.CurrentBet != s.CurrentBet {
			return false
		}
	}
	return true
}

func (e *Engine) advanceStreet(s *TableState) (*TableState, error) {
	for {
		for _, p := range s.Players {
			p.CurrentBet = 0
		}
		s.CurrentBet = 0

		var deal int
		switch s.Round {
		case StreetPreFlop:
			deal, s.Round = 3, StreetFlop
		case StreetFlop:
			deal, s.Round = 1, StreetTurn
		case StreetTurn:
			deal, s.Round = 1, StreetRiver
		default:
			s.Round = StreetShowdown
			return e.settle(s)
		}
		dealt, rest, err := s.Deck.Deal(deal)
		if err != nil {
			return nil, err
		}
		s.CommunityCards = append(s.CommunityCards, dealt...)
		s.Deck = rest

		if s.countStatus(PlayerActive) >= 2 {
			s.CurrentPlayerIndex = s.nextSeat(s.DealerIndex, PlayerActive)
			return s, nil
		}
	}
}

func (e *Engine) settle(s *TableState) (*TableState, error) {
	contenders := s.Contenders()
	res := &HandResult{}
	if len(contenders) == 1 {
		w := s.Players[contenders[0]]
		w.Chips += s.Pot
		res.Uncontested = true
		res.Payouts = []Payout{{PlayerID: w.ID, Amount: s.Pot}}
	} else {
		ranks := make(map[int]HandRank, len(contenders))
		var winners []int
		var best HandRank
		for _, i := range contenders {
			p := s.Players[i]
			cards := make([]Card, 0, len(p.Hand)+len(s.CommunityCards))
			cards = append(cards, p.Hand...)
			cards = append(cards, s.CommunityCards...)
			hr, err := Evaluate(cards)
			if err != nil {
				return nil, err
			}
			ranks[i] = hr
			switch {
			case winners == nil || hr.BetterThan(best):
				best = hr
				winners = []int{i}
			case Compare(hr, best) == 0:
				winners = append(winners, i)
			}
		}
		shares := SplitPot(s.Pot, winners, s.DealerIndex, len(s.Players))
		for k, i := range winners {
			p := s.Players[i]
			p.Chips += shares[k]
			hr := ranks[i]
			res.Payouts = append(res.Payouts, Payout{
				PlayerID: p.ID,
				Amount:   shares[k],
				Category: hr.Category,
				Label:    hr.Label,
				Cards:    hr.Cards,
			})
		}
	}
	s.Pot = 0
	s.Status = GameCompleted
	s.Result = res
	s.UpdatedAt = e.now()
	return s, nil
}

// NextHand seats everyone with chips left at a new waiting table, stacks
// carried over and the button moved one seat to the left.
func (e *Engine) NextHand(s *TableState) (*TableState, error) {
	if s.Status != GameCompleted {
		return nil, ErrGameNotCompleted
	}
	ns := s.Clone()
	n := len(ns.Players)
	var button *Player
	for step := 1; step <= n; step++ {
		if p := ns.Players[(s.DealerIndex+step)%n]; p.Chips > 0 {
			button = p
			break
		}
	}
	if button == nil {
		return nil, ErrInvalidPlayerCount
	}
	dealer := 0
	kept := make([]*Player, 0, n)
	for _, p := range ns.Players {
		if p.Chips <= 0 {
			continue
		}
		if p == button {
			dealer = len(kept)
		}
		kept = append(kept, p)
	}
	for i, p := range kept {
		p.Position = i
		p.Hand = nil
		p.CurrentBet = 0
		p.Committed = 0
		p.Status = PlayerActive
		p.LastAction = ""
	}
	ns.Players = kept
	if ns.PlayerIndex(ns.HostID) < 0 {
		ns.HostID = kept[0].ID
	}
	ns.Status = GameWaiting
	ns.DealerIndex = dealer
	ns.SmallBlindIndex, ns.BigBlindIndex = blindSeats(dealer, len(kept))
	ns.CurrentPlayerIndex = 0
	ns.Deck = nil
	ns.CommunityCards = nil
	ns.Pot = 0
	ns.CurrentBet = 0
	ns.Round = StreetPreFlop
	ns.Result = nil
	ns.UpdatedAt = e.now()
	return ns, nil
}

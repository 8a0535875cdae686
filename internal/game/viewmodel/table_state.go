package viewmodel

import (
	"time"

	"card-parlor/internal/game"
)

type SeatView struct {
	Seat       int    `json:"seat"`
	PlayerID   string `json:"player_id"`
	Name       string `json:"name"`
	Chips      int64  `json:"chips"`
	CurrentBet int64  `json:"current_bet"`
	Committed  int64  `json:"committed"`
	ToCall     int64  `json:"to_call"`
	Status     string `json:"status"`
	LastAction string `json:"last_action,omitempty"`
	Online     bool   `json:"online"`
	// HoleCards is only filled for the viewer's own seat and for hands shown at showdown.
	HoleCards []string `json:"hole_cards,omitempty"`
}

type PublicStateView struct {
	GameID           string           `json:"game_id"`
	Type             string           `json:"type"`
	HostID           string           `json:"host_id"`
	Status           string           `json:"status"`
	HandNumber       int              `json:"hand_number"`
	Round            string           `json:"round"`
	Pot              int64            `json:"pot"`
	CurrentBet       int64            `json:"current_bet"`
	SmallBlind       int64            `json:"small_blind"`
	BigBlind         int64            `json:"big_blind"`
	CommunityCards   []string         `json:"community_cards"`
	DealerSeat       int              `json:"dealer_seat"`
	SmallBlindSeat   int              `json:"small_blind_seat"`
	BigBlindSeat     int              `json:"big_blind_seat"`
	CurrentActorSeat *int             `json:"current_actor_seat,omitempty"`
	Seats            []SeatView       `json:"seats"`
	Result           *game.HandResult `json:"result,omitempty"`
	Version          int64            `json:"version"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type PlayerStateView struct {
	PublicStateView
	MySeat       int      `json:"my_seat"`
	MyHoleCards  []string `json:"my_hole_cards"`
	ToCall       int64    `json:"to_call"`
	MinRaiseTo   int64    `json:"min_raise_to,omitempty"`
	LegalActions []string `json:"legal_actions"`
}

// BuildPublicState projects st for spectators: the deck and unrevealed hole
// cards never leave the server. online may be nil.
func BuildPublicState(st *game.TableState, version int64, online map[string]bool) PublicStateView {
	shown := revealedAtShowdown(st)
	seats := make([]SeatView, 0, len(st.Players))
	for i, p := range st.Players {
		sv := SeatView{
			Seat:       i,
			PlayerID:   p.ID,
			Name:       p.Name,
			Chips:      p.Chips,
			CurrentBet: p.CurrentBet,
			Committed:  p.Committed,
			ToCall:     toCall(st, p),
			Status:     string(p.Status),
			LastAction: string(p.LastAction),
			Online:     online[p.ID],
		}
		if shown[p.ID] {
			sv.HoleCards = cardStrings(p.Hand)
		}
		seats = append(seats, sv)
	}
	out := PublicStateView{
		GameID:         st.ID,
		Type:           string(st.Type),
		HostID:         st.HostID,
		Status:         string(st.Status),
		HandNumber:     st.HandNumber,
		Round:          string(st.Round),
		Pot:            st.Pot,
		CurrentBet:     st.CurrentBet,
		SmallBlind:     st.SmallBlind,
		BigBlind:       st.BigBlind,
		CommunityCards: cardStrings(st.CommunityCards),
		DealerSeat:     st.DealerIndex,
		SmallBlindSeat: st.SmallBlindIndex,
		BigBlindSeat:   st.BigBlindIndex,
		Seats:          seats,
		Result:         st.Result,
		Version:        version,
		UpdatedAt:      st.UpdatedAt,
	}
	if st.Status == game.GameActive {
		cur := st.CurrentPlayerIndex
		out.CurrentActorSeat = &cur
	}
	return out
}

// BuildPlayerState is the public view plus what playerID alone may see. The
// second result is false when playerID is not seated.
func BuildPlayerState(st *game.TableState, playerID string, version int64, online map[string]bool) (PlayerStateView, bool) {
	idx := st.PlayerIndex(playerID)
	if idx < 0 {
		return PlayerStateView{}, false
	}
	me := st.Players[idx]
	pub := BuildPublicState(st, version, online)
	pub.Seats[idx].HoleCards = cardStrings(me.Hand)

	out := PlayerStateView{
		PublicStateView: pub,
		MySeat:          idx,
		MyHoleCards:     cardStrings(me.Hand),
		ToCall:          toCall(st, me),
		LegalActions:    []string{},
	}
	if st.Status != game.GameActive || idx != st.CurrentPlayerIndex || me.Status != game.PlayerActive {
		return out, true
	}
	out.MinRaiseTo = 2 * st.CurrentBet
	if out.MinRaiseTo == 0 {
		out.MinRaiseTo = st.BigBlind
	}
	probes := []game.Action{
		{Type: game.ActionFold},
		{Type: game.ActionCheck},
		{Type: game.ActionCall},
		{Type: game.ActionRaise, Amount: out.MinRaiseTo},
		{Type: game.ActionAllIn},
	}
	for _, a := range probes {
		a.PlayerID = playerID
		if a.Type == game.ActionCall && out.ToCall == 0 {
			continue
		}
		if a.Type == game.ActionRaise && me.CurrentBet+me.Chips <= out.MinRaiseTo {
			continue
		}
		if game.ValidateAction(st, a) == nil {
			out.LegalActions = append(out.LegalActions, string(a.Type))
		}
	}
	return out, true
}

func toCall(st *game.TableState, p *game.Player) int64 {
	if p.Status != game.PlayerActive {
		return 0
	}
	return min(max(st.CurrentBet-p.CurrentBet, 0), p.Chips)
}

// revealedAtShowdown lists the players whose hands were compared to settle a
// contested pot.
func revealedAtShowdown(st *game.TableState) map[string]bool {
	out := map[string]bool{}
	if st.Status != game.GameCompleted || st.Result == nil || st.Result.Uncontested {
		return out
	}
	for _, i := range st.Contenders() {
		out[st.Players[i].ID] = true
	}
	return out
}

func cardStrings(cards []game.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}

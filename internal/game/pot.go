package game

import "sort"

// SplitPot divides pot between the winning seats. Every winner gets the floor
// share; odd chips go one each to winners in seat order starting left of the
// dealer. The returned amounts line up with winners.
func SplitPot(pot int64, winners []int, dealer, seats int) []int64 {
	out := make([]int64, len(winners))
	if len(winners) == 0 || pot <= 0 {
		return out
	}
	share := pot / int64(len(winners))
	for i := range out {
		out[i] = share
	}
	remainder := pot - share*int64(len(winners))
	if remainder == 0 {
		return out
	}

	order := make([]int, len(winners))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return seatsLeftOf(dealer, winners[order[a]], seats) < seatsLeftOf(dealer, winners[order[b]], seats)
	})
	for k := int64(0); k < remainder; k++ {
		out[order[k]]++
	}
	return out
}

// seatsLeftOf is how many seats clockwise from the dealer seat lies; the seat
// directly left of the dealer is 0 and the dealer is last.
func seatsLeftOf(dealer, seat, seats int) int {
	return ((seat-dealer-1)%seats + seats) % seats
}

package topics

const (
	// Bets
	BetPlaced = "bet_placed"
)

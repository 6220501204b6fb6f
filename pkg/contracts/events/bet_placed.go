package events

type BetPlaced struct {
	BetID     int64   `json:"bet_id"`
	UserID    int64   `json:"user_id"`
	SportKey  string  `json:"sport_key"`
	EventName string  `json:"event_name"`
	MatchID   string  `json:"match_id"`
	Outcome   string  `json:"outcome"`
	Price     float64 `json:"price"`
	CostCoins int64   `json:"cost_coins"`
	TsUnixMs  int64   `json:"ts_unix_ms"`
}

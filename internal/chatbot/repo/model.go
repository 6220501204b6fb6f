package repo

import "database/sql"

// Status possíveis de uma aposta
// A máquina de conversação só escreve "placed"; won/lost são transições
// do processo de liquidação, externo a este serviço
const (
	StatusPending = "pending"
	StatusPlaced  = "placed"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// User é a conta de um número de WhatsApp
type User struct {
	ID             int64
	WhatsAppNumber string
	CoinsBalance   int64
	ReferralCode   string
}

// Bet é uma linha do ledger de apostas
// MatchID é nulo apenas em registros seed de bootstrap
type Bet struct {
	ID        int64
	UserID    int64
	SportKey  string
	EventName string
	MatchID   sql.NullString
	Status    string
	Cost      int64
}

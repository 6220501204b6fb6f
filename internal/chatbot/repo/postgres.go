package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres implementa a conta de usuário e o ledger de apostas
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// EnsureSchema cria as tabelas se ainda não existirem
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id         BIGSERIAL PRIMARY KEY,
			whatsapp_number TEXT NOT NULL UNIQUE,
			coins_balance   BIGINT NOT NULL DEFAULT 0 CHECK (coins_balance >= 0),
			referral_code   TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			bet_id     BIGSERIAL PRIMARY KEY,
			user_id    BIGINT REFERENCES users(user_id),
			sport_key  TEXT NOT NULL,
			event_name TEXT NOT NULL,
			match_id   TEXT,
			status     TEXT NOT NULL DEFAULT 'pending',
			cost       BIGINT NOT NULL CHECK (cost > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_user ON bets(user_id, bet_id DESC)`,
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// FindByNumber busca a conta pelo identificador do canal
// Retorna ErrNotFound quando o número nunca foi visto
func (p *Postgres) FindByNumber(ctx context.Context, number string) (*User, error) {
	u := &User{}
	err := p.db.QueryRowContext(ctx,
		`SELECT user_id, whatsapp_number, coins_balance, referral_code FROM users WHERE whatsapp_number=$1`,
		number).Scan(&u.ID, &u.WhatsAppNumber, &u.CoinsBalance, &u.ReferralCode)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create registra uma conta nova com o saldo inicial e o código de indicação
func (p *Postgres) Create(ctx context.Context, number string, initialBalance int64, referralCode string) (*User, error) {
	u := &User{WhatsAppNumber: number, CoinsBalance: initialBalance, ReferralCode: referralCode}
	err := p.db.QueryRowContext(ctx,
		`INSERT INTO users (whatsapp_number, coins_balance, referral_code) VALUES ($1,$2,$3) RETURNING user_id`,
		number, initialBalance, referralCode).Scan(&u.ID)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// PlaceBet debita o custo e insere a aposta numa única transação
// Lock pessimista na linha do usuário: duas mensagens concorrentes do mesmo
// número não conseguem observar o mesmo saldo (sem double-spend)
// Saldo insuficiente -> ErrInsufficientFunds, sem nenhuma mutação
func (p *Postgres) PlaceBet(ctx context.Context, b *Bet) (newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var balance int64
	if err = tx.QueryRowContext(ctx,
		`SELECT coins_balance FROM users WHERE user_id=$1 FOR UPDATE`, b.UserID).Scan(&balance); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, err
	}

	if balance < b.Cost {
		return 0, ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE users SET coins_balance = coins_balance - $1 WHERE user_id=$2`, b.Cost, b.UserID); err != nil {
		return 0, err
	}

	if err = tx.QueryRowContext(ctx,
		`INSERT INTO bets (user_id, sport_key, event_name, match_id, status, cost)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING bet_id`,
		b.UserID, b.SportKey, b.EventName, b.MatchID, b.Status, b.Cost).Scan(&b.ID); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return balance - b.Cost, nil
}

// RecentBets retorna as apostas mais recentes do usuário, decrescente por id
func (p *Postgres) RecentBets(ctx context.Context, userID int64, limit int) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT bet_id, user_id, sport_key, event_name, match_id, status, cost
		 FROM bets WHERE user_id=$1 ORDER BY bet_id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.ID, &b.UserID, &b.SportKey, &b.EventName, &b.MatchID, &b.Status, &b.Cost); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// CountBets conta as apostas do usuário
func (p *Postgres) CountBets(ctx context.Context, userID int64) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// CountAllBets conta o ledger inteiro; usado só pelo bootstrap de seed
func (p *Postgres) CountAllBets(ctx context.Context) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bets`).Scan(&n)
	return n, err
}

// SeedBets insere registros placeholder do bootstrap numa transação única
func (p *Postgres) SeedBets(ctx context.Context, bets []Bet) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range bets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bets (user_id, sport_key, event_name, match_id, status, cost)
			 VALUES (NULLIF($1,0),$2,$3,$4,$5,$6)`,
			b.UserID, b.SportKey, b.EventName, b.MatchID, b.Status, b.Cost); err != nil {
			return err
		}
	}

	return tx.Commit()
}

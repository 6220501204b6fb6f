package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/catalog"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/repo"
)

// Limite de apostas exibidas no resumo da conta
const recentBetsShown = 5

// Ledger é a visão do armazenamento de contas/apostas consumida pela máquina
// PlaceBet precisa ser atômico: checagem de saldo + débito + inserção numa
// unidade só, por usuário
type Ledger interface {
	PlaceBet(ctx context.Context, b *repo.Bet) (newBalance int64, err error)
	RecentBets(ctx context.Context, userID int64, limit int) ([]repo.Bet, error)
	CountBets(ctx context.Context, userID int64) (int, error)
}

// MatchFetcher busca as partidas de um torneio sob demanda
// Contrato do gateway: falha de rede vira resultado vazio, nunca erro aqui
type MatchFetcher interface {
	FetchMatches(ctx context.Context, eventKey string) []catalog.Match
}

// Machine interpreta cada mensagem contra o estado atual do usuário
// Decisão pura sobre (estado, entrada, conta, catálogo); o único efeito
// externo é a mutação de ledger na colocação de aposta
type Machine struct {
	snapshot catalog.Snapshot
	fetcher  MatchFetcher
	ledger   Ledger
	betCost  int64
	log      *zap.Logger
}

func NewMachine(snapshot catalog.Snapshot, f MatchFetcher, l Ledger, betCost int64, log *zap.Logger) *Machine {
	return &Machine{snapshot: snapshot, fetcher: f, ledger: l, betCost: betCost, log: log}
}

// Result é a saída de uma rodada: próximo estado, exatamente uma resposta
// e, quando houve colocação, a aposta registrada com o novo saldo
type Result struct {
	Next       State
	Reply      string
	Placed     *repo.Bet
	Outcome    string
	Price      float64
	NewBalance int64
}

// Handle processa uma mensagem de entrada
// Espera ser chamada serializada por usuário; mensagens de usuários
// distintos podem correr em paralelo
func (m *Machine) Handle(ctx context.Context, user *repo.User, st State, input string) Result {
	msg := strings.ToLower(strings.TrimSpace(input))

	// comando global: só intercepta quando existe estado de conversa
	if msg == "exit" && !st.IsIdle() {
		return Result{Next: Idle(), Reply: exitMessage}
	}

	switch st.Step {
	case StepSelectSport:
		return m.handleSelectSport(st, msg)
	case StepSelectTournament:
		return m.handleSelectTournament(ctx, st, msg)
	case StepSelectMatch:
		return m.handleSelectMatch(st, msg)
	case StepPlaceBet:
		return m.handlePlaceBet(ctx, user, st, msg)
	default:
		return m.handleIdle(ctx, user, msg)
	}
}

func (m *Machine) handleIdle(ctx context.Context, user *repo.User, msg string) Result {
	switch msg {
	case "start":
		if len(m.snapshot) == 0 {
			return Result{Next: Idle(), Reply: unavailableMessage}
		}
		return Result{Next: State{Step: StepSelectSport}, Reply: sportListMessage(m.snapshot.Sports())}

	case "my account":
		bets, err := m.ledger.RecentBets(ctx, user.ID, recentBetsShown)
		if err != nil {
			m.log.Error("recent bets lookup failed", zap.Int64("user_id", user.ID), zap.Error(err))
			bets = nil
		}
		total := len(bets)
		if len(bets) == recentBetsShown {
			if n, err := m.ledger.CountBets(ctx, user.ID); err == nil {
				total = n
			} else {
				m.log.Error("bet count failed", zap.Int64("user_id", user.ID), zap.Error(err))
			}
		}
		return Result{Next: Idle(), Reply: accountMessage(user, bets, total, recentBetsShown)}

	default:
		return Result{Next: Idle(), Reply: helpMessage}
	}
}

func (m *Machine) handleSelectSport(st State, msg string) Result {
	sport, ok := m.snapshot.ResolveSport(msg)
	if !ok {
		// seleção inválida: relistar e permanecer na etapa
		return Result{Next: st, Reply: invalidSportMessage(m.snapshot.Sports())}
	}

	active := m.snapshot.ActiveTournaments(sport)
	if len(active) == 0 {
		return Result{Next: Idle(), Reply: noTournamentsMessage}
	}

	return Result{
		Next:  State{Step: StepSelectTournament, Sport: sport},
		Reply: tournamentListMessage(sport, active),
	}
}

func (m *Machine) handleSelectTournament(ctx context.Context, st State, msg string) Result {
	idx, err := strconv.Atoi(msg)
	if err != nil {
		return Result{Next: st, Reply: invalidTournamentInput}
	}

	// a lista ativa é recomputada do catálogo, não cacheada no estado
	active := m.snapshot.ActiveTournaments(st.Sport)
	if idx < 1 || idx > len(active) {
		return Result{Next: st, Reply: invalidTournamentPick}
	}

	selected := active[idx-1]
	matches := m.fetcher.FetchMatches(ctx, catalog.EventKey(selected.Key))
	if len(matches) == 0 {
		return Result{Next: Idle(), Reply: noMatchesMessage}
	}

	return Result{
		Next: State{
			Step:       StepSelectMatch,
			Sport:      st.Sport,
			Tournament: selected.Title,
			Matches:    matches,
		},
		Reply: matchListMessage(selected.Title, matches),
	}
}

func (m *Machine) handleSelectMatch(st State, msg string) Result {
	idx, err := strconv.Atoi(msg)
	if err != nil {
		return Result{Next: st, Reply: invalidMatchInput}
	}
	if idx < 1 || idx > len(st.Matches) {
		return Result{Next: st, Reply: invalidMatchPick}
	}

	selected := st.Matches[idx-1]
	if len(selected.Odds.Outcomes) == 0 {
		return Result{Next: st, Reply: noOutcomesMessage}
	}

	return Result{
		Next: State{
			Step:       StepPlaceBet,
			Sport:      st.Sport,
			Tournament: st.Tournament,
			Match:      &selected,
		},
		Reply: outcomeListMessage(selected),
	}
}

func (m *Machine) handlePlaceBet(ctx context.Context, user *repo.User, st State, msg string) Result {
	if !strings.HasPrefix(msg, "bet") {
		return Result{Next: st, Reply: invalidBetCommand}
	}

	parts := strings.Fields(msg)
	if len(parts) != 2 || !isDigits(parts[1]) {
		return Result{Next: st, Reply: invalidBetFormat}
	}

	if st.Match == nil {
		return Result{Next: Idle(), Reply: noMatchSelected}
	}

	choice, _ := strconv.Atoi(parts[1])
	outcomes := st.Match.Odds.Outcomes
	if choice < 1 || choice > len(outcomes) {
		return Result{Next: st, Reply: invalidBetPick}
	}
	outcome := outcomes[choice-1]

	if user.CoinsBalance < m.betCost {
		return Result{Next: st, Reply: insufficientBalance}
	}

	bet := &repo.Bet{
		UserID:    user.ID,
		SportKey:  st.Match.SportKey,
		EventName: fmt.Sprintf("%s vs %s", st.Match.HomeTeam, st.Match.AwayTeam),
		MatchID:   sql.NullString{String: st.Match.ID, Valid: st.Match.ID != ""},
		Status:    repo.StatusPlaced,
		Cost:      m.betCost,
	}

	newBalance, err := m.ledger.PlaceBet(ctx, bet)
	if errors.Is(err, repo.ErrInsufficientFunds) {
		// releitura atômica no ledger venceu o snapshot local da conta
		return Result{Next: st, Reply: insufficientBalance}
	}
	if err != nil {
		m.log.Error("bet placement failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return Result{Next: st, Reply: betNotPlaced}
	}

	user.CoinsBalance = newBalance
	return Result{
		Next:       Idle(),
		Reply:      confirmationMessage(outcome.Name, outcome.Price, m.betCost, newBalance),
		Placed:     bet,
		Outcome:    outcome.Name,
		Price:      outcome.Price,
		NewBalance: newBalance,
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

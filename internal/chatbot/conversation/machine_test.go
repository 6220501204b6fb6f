package conversation

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/catalog"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/repo"
)

func testSnapshot() catalog.Snapshot {
	return catalog.Snapshot{
		"Football": {
			{Title: "Premier League", Key: "Premier League", Active: true},
			{Title: "Sunday Cup", Key: "Sunday Cup", Active: false},
		},
		"Basketball": {
			{Title: "NBA", Key: "NBA", Active: true},
		},
		"Darts": {
			{Title: "Retired Open", Key: "Retired Open", Active: false},
		},
	}
}

func testMatch() catalog.Match {
	return catalog.Match{
		ID:           "m-101",
		SportKey:     "soccer_epl",
		HomeTeam:     "Arsenal",
		AwayTeam:     "Chelsea",
		CommenceTime: "2025-06-01T18:30:00Z",
		Odds: catalog.Odds{Outcomes: []catalog.Outcome{
			{Name: "Arsenal", Price: 1.85},
			{Name: "Chelsea", Price: 2.4},
		}},
	}
}

type fakeFetcher struct {
	matches map[string][]catalog.Match
}

func (f *fakeFetcher) FetchMatches(_ context.Context, key string) []catalog.Match {
	return f.matches[key]
}

// fakeLedger reproduz a atomicidade do PlaceBet de produção:
// checagem de saldo e débito sob o mesmo lock
type fakeLedger struct {
	mu       sync.Mutex
	balance  int64
	bets     []repo.Bet
	placeErr error
	nextID   int64
}

func (f *fakeLedger) PlaceBet(_ context.Context, b *repo.Bet) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.placeErr != nil {
		return 0, f.placeErr
	}
	if f.balance < b.Cost {
		return 0, repo.ErrInsufficientFunds
	}
	f.balance -= b.Cost
	f.nextID++
	b.ID = f.nextID
	f.bets = append(f.bets, *b)
	return f.balance, nil
}

func (f *fakeLedger) RecentBets(_ context.Context, userID int64, limit int) ([]repo.Bet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repo.Bet
	for i := len(f.bets) - 1; i >= 0 && len(out) < limit; i-- {
		if f.bets[i].UserID == userID {
			out = append(out, f.bets[i])
		}
	}
	return out, nil
}

func (f *fakeLedger) CountBets(_ context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bets {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func testUser(balance int64) *repo.User {
	return &repo.User{ID: 7, WhatsAppNumber: "whatsapp:+5511999990000", CoinsBalance: balance, ReferralCode: "AB12CD34"}
}

func newTestMachine(ledger *fakeLedger) *Machine {
	fetcher := &fakeFetcher{matches: map[string][]catalog.Match{
		"premier_league": {testMatch()},
	}}
	return NewMachine(testSnapshot(), fetcher, ledger, 10, zap.NewNop())
}

var numberedLine = regexp.MustCompile(`^\d+\. `)

// numberedLines conta as linhas "N. ..." de uma lista na resposta
func numberedLines(reply string) int {
	n := 0
	for _, line := range strings.Split(reply, "\n") {
		if numberedLine.MatchString(line) {
			n++
		}
	}
	return n
}

func TestIdleCommands(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(&fakeLedger{balance: 500})

	t.Run("start lists sports 1-based", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), Idle(), "start")
		assert.Equal(t, StepSelectSport, res.Next.Step)
		assert.Contains(t, res.Reply, "1. Basketball")
		assert.Contains(t, res.Reply, "2. Darts")
		assert.Contains(t, res.Reply, "3. Football")
		assert.Equal(t, 3, numberedLines(res.Reply))
	})

	t.Run("start is case and whitespace tolerant", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), Idle(), "  START ")
		assert.Equal(t, StepSelectSport, res.Next.Step)
	})

	t.Run("unknown command gets help and stays idle", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), Idle(), "hello")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "Invalid command")
		assert.Contains(t, res.Reply, "'start'")
		assert.Contains(t, res.Reply, "'my account'")
	})

	t.Run("exit from idle is not intercepted", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), Idle(), "exit")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "Invalid command")
	})

	t.Run("empty catalog degrades to unavailable", func(t *testing.T) {
		empty := NewMachine(catalog.Snapshot{}, &fakeFetcher{}, &fakeLedger{}, 10, zap.NewNop())
		res := empty.Handle(ctx, testUser(500), Idle(), "start")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "unavailable")
	})
}

func TestMyAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("no bets yet", func(t *testing.T) {
		m := newTestMachine(&fakeLedger{balance: 500})
		res := m.Handle(ctx, testUser(500), Idle(), "my account")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "Balance: 500 coins")
		assert.Contains(t, res.Reply, "Referral Code: AB12CD34")
		assert.Contains(t, res.Reply, "haven't placed any bets")
	})

	t.Run("shows five most recent and counts the rest", func(t *testing.T) {
		ledger := &fakeLedger{balance: 500}
		for i := 0; i < 7; i++ {
			ledger.nextID++
			ledger.bets = append(ledger.bets, repo.Bet{
				ID: ledger.nextID, UserID: 7, SportKey: "soccer_epl",
				EventName: "Game", Status: repo.StatusPlaced, Cost: 10,
			})
		}
		m := newTestMachine(ledger)
		res := m.Handle(ctx, testUser(500), Idle(), "my account")
		assert.Equal(t, 5, numberedLines(res.Reply))
		assert.Contains(t, res.Reply, "...and 2 more bets")
	})
}

func TestSelectSport(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(&fakeLedger{balance: 500})
	st := State{Step: StepSelectSport}

	t.Run("by index", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "3")
		assert.Equal(t, StepSelectTournament, res.Next.Step)
		assert.Equal(t, "Football", res.Next.Sport)
		// só torneios ativos aparecem
		assert.Contains(t, res.Reply, "1. Premier League")
		assert.NotContains(t, res.Reply, "Sunday Cup")
		assert.Equal(t, 1, numberedLines(res.Reply))
	})

	t.Run("by name case-insensitive", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "FOOTBALL")
		assert.Equal(t, StepSelectTournament, res.Next.Step)
		assert.Equal(t, "Football", res.Next.Sport)
	})

	t.Run("invalid selection re-lists and stays", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "curling")
		assert.Equal(t, StepSelectSport, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid selection")
		assert.Contains(t, res.Reply, "1. Basketball")

		// idempotente: repetir a entrada inválida não deriva o estado
		again := m.Handle(ctx, testUser(500), res.Next, "curling")
		assert.Equal(t, res.Next, again.Next)
		assert.Equal(t, res.Reply, again.Reply)
	})

	t.Run("out of range index is invalid", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "4")
		assert.Equal(t, StepSelectSport, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid selection")
	})

	t.Run("sport without active tournaments resets to idle", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "darts")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "No tournaments")
	})
}

func TestSelectTournament(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(&fakeLedger{balance: 500})
	st := State{Step: StepSelectTournament, Sport: "Football"}

	t.Run("valid index fetches matches by derived event key", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "1")
		require.Equal(t, StepSelectMatch, res.Next.Step)
		assert.Equal(t, "Premier League", res.Next.Tournament)
		require.Len(t, res.Next.Matches, 1)
		assert.Contains(t, res.Reply, "1. Arsenal vs Chelsea at June 01, 2025 at 18:30 UTC")
	})

	t.Run("non-integer input stays put", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "first one")
		assert.Equal(t, st, res.Next)
		assert.Contains(t, res.Reply, "Invalid input")
	})

	t.Run("out of range stays put", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "5")
		assert.Equal(t, st, res.Next)
		assert.Contains(t, res.Reply, "Invalid selection")
	})

	t.Run("tournament without matches resets to idle", func(t *testing.T) {
		// NBA não existe no fetcher: contrato do gateway devolve vazio
		res := m.Handle(ctx, testUser(500), State{Step: StepSelectTournament, Sport: "Basketball"}, "1")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "No matches")
	})
}

func TestSelectMatch(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(&fakeLedger{balance: 500})
	st := State{Step: StepSelectMatch, Sport: "Football", Tournament: "Premier League", Matches: []catalog.Match{testMatch()}}

	t.Run("valid index lists outcomes with price", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "1")
		require.Equal(t, StepPlaceBet, res.Next.Step)
		require.NotNil(t, res.Next.Match)
		assert.Equal(t, "m-101", res.Next.Match.ID)
		assert.Contains(t, res.Reply, "1. Arsenal: 1.85")
		assert.Contains(t, res.Reply, "2. Chelsea: 2.4")
		assert.Contains(t, res.Reply, "bet {number}")
		assert.Equal(t, 2, numberedLines(res.Reply))
	})

	t.Run("non-integer stays put", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "arsenal")
		assert.Equal(t, st.Step, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid input")
	})

	t.Run("out of range stays put", func(t *testing.T) {
		res := m.Handle(ctx, testUser(500), st, "2")
		assert.Equal(t, st.Step, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid selection")
	})

	t.Run("match without outcomes keeps selection open", func(t *testing.T) {
		noOdds := testMatch()
		noOdds.Odds = catalog.Odds{}
		stNo := State{Step: StepSelectMatch, Sport: "Football", Tournament: "Premier League", Matches: []catalog.Match{noOdds}}
		res := m.Handle(ctx, testUser(500), stNo, "1")
		assert.Equal(t, StepSelectMatch, res.Next.Step)
		assert.Contains(t, res.Reply, "No betting outcomes")
	})
}

func placeBetState() State {
	m := testMatch()
	return State{Step: StepPlaceBet, Sport: "Football", Tournament: "Premier League", Match: &m}
}

func TestPlaceBet(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip deducts cost and appends one ledger row", func(t *testing.T) {
		ledger := &fakeLedger{balance: 500}
		m := newTestMachine(ledger)
		user := testUser(500)

		res := m.Handle(ctx, user, placeBetState(), "bet 1")
		assert.True(t, res.Next.IsIdle())
		require.NotNil(t, res.Placed)
		assert.Equal(t, int64(490), res.NewBalance)
		assert.Equal(t, int64(490), user.CoinsBalance)
		assert.Contains(t, res.Reply, "Bet Placed!")
		assert.Contains(t, res.Reply, "Team: Arsenal")
		assert.Contains(t, res.Reply, "Odds: 1.85")
		assert.Contains(t, res.Reply, "Cost: 10 coins")
		assert.Contains(t, res.Reply, "Remaining Balance: 490 coins")

		require.Len(t, ledger.bets, 1)
		placed := ledger.bets[0]
		assert.Equal(t, repo.StatusPlaced, placed.Status)
		assert.Equal(t, "soccer_epl", placed.SportKey)
		assert.Equal(t, "Arsenal vs Chelsea", placed.EventName)
		assert.True(t, placed.MatchID.Valid)
		assert.Equal(t, "m-101", placed.MatchID.String)
		assert.Equal(t, int64(10), placed.Cost)
	})

	t.Run("insufficient balance leaves everything unchanged", func(t *testing.T) {
		ledger := &fakeLedger{balance: 5}
		m := newTestMachine(ledger)
		user := testUser(5)
		st := placeBetState()

		res := m.Handle(ctx, user, st, "bet 1")
		assert.Equal(t, StepPlaceBet, res.Next.Step)
		assert.Nil(t, res.Placed)
		assert.Contains(t, res.Reply, "Insufficient balance")
		assert.Equal(t, int64(5), user.CoinsBalance)
		assert.Empty(t, ledger.bets)
	})

	t.Run("ledger failure keeps state and informs user", func(t *testing.T) {
		ledger := &fakeLedger{balance: 500, placeErr: errors.New("db down")}
		m := newTestMachine(ledger)
		user := testUser(500)

		res := m.Handle(ctx, user, placeBetState(), "bet 1")
		assert.Equal(t, StepPlaceBet, res.Next.Step)
		assert.Nil(t, res.Placed)
		assert.Contains(t, res.Reply, "could not be placed")
		assert.Equal(t, int64(500), user.CoinsBalance)
	})

	t.Run("malformed commands stay put", func(t *testing.T) {
		m := newTestMachine(&fakeLedger{balance: 500})
		st := placeBetState()
		for _, input := range []string{"bet", "bet one", "bet 1 2", "bet 1.5"} {
			res := m.Handle(ctx, testUser(500), st, input)
			assert.Equal(t, StepPlaceBet, res.Next.Step, "input %q", input)
			assert.Contains(t, res.Reply, "Invalid command format", "input %q", input)
		}
	})

	t.Run("non-bet input stays put with generic message", func(t *testing.T) {
		m := newTestMachine(&fakeLedger{balance: 500})
		res := m.Handle(ctx, testUser(500), placeBetState(), "place it")
		assert.Equal(t, StepPlaceBet, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid command")
	})

	t.Run("out of range outcome stays put", func(t *testing.T) {
		ledger := &fakeLedger{balance: 500}
		m := newTestMachine(ledger)
		res := m.Handle(ctx, testUser(500), placeBetState(), "bet 3")
		assert.Equal(t, StepPlaceBet, res.Next.Step)
		assert.Contains(t, res.Reply, "Invalid bet selection")
		assert.Empty(t, ledger.bets)
	})

	t.Run("missing match snapshot resets to idle", func(t *testing.T) {
		m := newTestMachine(&fakeLedger{balance: 500})
		st := State{Step: StepPlaceBet, Sport: "Football", Tournament: "Premier League"}
		res := m.Handle(ctx, testUser(500), st, "bet 1")
		assert.True(t, res.Next.IsIdle())
		assert.Contains(t, res.Reply, "No match selected")
	})
}

func TestExitClearsState(t *testing.T) {
	ctx := context.Background()
	m := newTestMachine(&fakeLedger{balance: 500})

	for _, st := range []State{
		{Step: StepSelectSport},
		{Step: StepSelectTournament, Sport: "Football"},
		{Step: StepSelectMatch, Sport: "Football", Tournament: "Premier League", Matches: []catalog.Match{testMatch()}},
		placeBetState(),
	} {
		res := m.Handle(ctx, testUser(500), st, "exit")
		require.True(t, res.Next.IsIdle(), "step %s", st.Step)
		assert.Contains(t, res.Reply, "exited the betting process")

		// 'start' em seguida recomeça limpo, sem vazar torneio/partida
		fresh := m.Handle(ctx, testUser(500), res.Next, "start")
		assert.Equal(t, StepSelectSport, fresh.Next.Step)
		assert.Empty(t, fresh.Next.Sport)
		assert.Empty(t, fresh.Next.Matches)
		assert.Nil(t, fresh.Next.Match)
	}
}

// Cenário completo: start -> esporte -> torneio -> partida -> bet 1
func TestFullBettingScenario(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{balance: 500}
	m := newTestMachine(ledger)
	user := testUser(500)

	res := m.Handle(ctx, user, Idle(), "start")
	require.Equal(t, StepSelectSport, res.Next.Step)

	res = m.Handle(ctx, user, res.Next, "3") // Football
	require.Equal(t, StepSelectTournament, res.Next.Step)

	res = m.Handle(ctx, user, res.Next, "1") // Premier League
	require.Equal(t, StepSelectMatch, res.Next.Step)

	res = m.Handle(ctx, user, res.Next, "1") // Arsenal vs Chelsea
	require.Equal(t, StepPlaceBet, res.Next.Step)

	res = m.Handle(ctx, user, res.Next, "bet 1")
	require.True(t, res.Next.IsIdle())
	require.NotNil(t, res.Placed)
	assert.Equal(t, int64(490), user.CoinsBalance)
	require.Len(t, ledger.bets, 1)
}

// Duas colocações concorrentes com saldo pra uma só: exatamente um débito
func TestConcurrentPlacementSingleDeduction(t *testing.T) {
	ctx := context.Background()
	ledger := &fakeLedger{balance: 10}
	m := newTestMachine(ledger)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// cada goroutine simula uma entrega do transporte com o
			// mesmo snapshot de conta; o ledger é quem arbitra
			results[i] = m.Handle(ctx, testUser(10), placeBetState(), "bet 1")
		}(i)
	}
	wg.Wait()

	placed := 0
	for _, r := range results {
		if r.Placed != nil {
			placed++
		} else {
			assert.Contains(t, r.Reply, "Insufficient balance")
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, int64(0), ledger.balance)
	require.Len(t, ledger.bets, 1)
}

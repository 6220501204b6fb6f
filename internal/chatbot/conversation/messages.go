package conversation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/catalog"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/repo"
)

// Construção das mensagens de saída. Listas sempre numeradas a partir de 1

const (
	exitHint = "\n🔄 Type 'exit' anytime to leave the betting process."

	exitMessage = "👋 You have exited the betting process.\n\n" +
		"You can type:\n" +
		"1️⃣ 'start' to begin selecting a sport and place a bet.\n" +
		"2️⃣ 'my account' to check your current balance and referral code."

	helpMessage = "❓ *Invalid command.*\n\n" +
		"You can:\n" +
		"1. Type 'start' to select a sport and place a bet.\n" +
		"2. Type 'my account' to check your balance.\n" +
		exitHint

	unavailableMessage = "⚠️ Betting is unavailable right now. Please try again later."

	noTournamentsMessage = "❌ No tournaments available for the selected sport."

	noMatchesMessage = "❌ No matches found for the selected tournament."

	noOutcomesMessage = "❌ *No betting outcomes available for this match.* Please select another match."

	invalidTournamentInput = "❌ *Invalid input.* Please reply with a number corresponding to the tournament."

	invalidTournamentPick = "❌ *Invalid selection.* Please choose a valid tournament by typing the corresponding number."

	invalidMatchInput = "❌ *Invalid input.* Please reply with a number corresponding to the match."

	invalidMatchPick = "❌ *Invalid selection.* Please choose a valid match by typing the corresponding number."

	invalidBetFormat = "❌ *Invalid command format.* Please type 'bet {number}' (e.g., 'bet 1')."

	invalidBetCommand = "❌ *Invalid command.* Please type 'bet {number}' to place a bet (e.g., 'bet 1')."

	invalidBetPick = "❌ *Invalid bet selection.* Please choose a valid outcome by typing the corresponding number."

	insufficientBalance = "❌ *Insufficient balance* to place the bet."

	betNotPlaced = "⚠️ Your bet could not be placed. Please try again."

	noMatchSelected = "❌ *No match selected.* Please start the betting process again by typing 'start'."
)

// WelcomeMessage é enviada uma única vez, na criação da conta
func WelcomeMessage(initialBalance int64) string {
	return fmt.Sprintf("🎉 Welcome to Opiniox, your ultimate opinion betting platform! 🎉\n\n"+
		"Your account has been successfully created with %d coins. Ready to place your bets and test your predictions?\n\n"+
		"Here's what you can do:\n"+
		"1️⃣ Type 'start' to begin selecting your sport and place a bet.\n"+
		"2️⃣ Type 'my account' to check your current balance and referral code.\n\n"+
		"Let the fun begin and may your bets be ever in your favor! 🚀", initialBalance)
}

func sportListMessage(sports []string) string {
	var b strings.Builder
	b.WriteString("🏆 *Select a Sport:*\n")
	for i, sport := range sports {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sport)
	}
	b.WriteString("\n➡️ Reply with the sport name or number.\n")
	b.WriteString(exitHint)
	return b.String()
}

func invalidSportMessage(sports []string) string {
	var b strings.Builder
	b.WriteString("❌ *Invalid selection.* Please choose a valid sport by typing the corresponding number or sport name.\n\n")
	b.WriteString("🏆 *Available Sports:*\n")
	for i, sport := range sports {
		fmt.Fprintf(&b, "%d. %s\n", i+1, sport)
	}
	b.WriteString("\n➡️ Reply with the sport name or number.\n")
	b.WriteString(exitHint)
	return b.String()
}

func tournamentListMessage(sport string, tournaments []catalog.Tournament) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏅 *%s Tournaments:*\n", sport)
	for i, t := range tournaments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	b.WriteString("\n➡️ Reply with the number of the tournament you'd like to bet on (e.g., '1').\n")
	b.WriteString(exitHint)
	return b.String()
}

func matchListMessage(tournament string, matches []catalog.Match) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚽ *%s Matches:*\n", tournament)
	for i, m := range matches {
		fmt.Fprintf(&b, "%d. %s vs %s at %s\n", i+1, m.HomeTeam, m.AwayTeam, formatKickoff(m.CommenceTime))
	}
	b.WriteString("\n➡️ Reply with the number of the match you'd like to bet on (e.g., '1').\n")
	b.WriteString(exitHint)
	return b.String()
}

func outcomeListMessage(m catalog.Match) string {
	var b strings.Builder
	b.WriteString("🏟️ *Match Selected:*\n")
	fmt.Fprintf(&b, "%s vs %s\n", m.HomeTeam, m.AwayTeam)
	fmt.Fprintf(&b, "Commence Time: %s\n\n", formatKickoff(m.CommenceTime))
	b.WriteString("*Available Outcomes:*\n")
	for i, o := range m.Odds.Outcomes {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, o.Name, formatPrice(o.Price))
	}
	b.WriteString("\n➡️ To place a bet, type 'bet {number}' corresponding to your chosen outcome (e.g., 'bet 1').\n")
	b.WriteString(exitHint)
	return b.String()
}

func confirmationMessage(team string, price float64, cost, newBalance int64) string {
	return fmt.Sprintf("✅ *Bet Placed!*\n"+
		"Team: %s\n"+
		"Odds: %s\n"+
		"Cost: %d coins\n"+
		"Remaining Balance: %d coins.\n\n"+
		"Type 'start' to place another bet or 'my account' to view your details.\n"+
		exitHint, team, formatPrice(price), cost, newBalance)
}

// accountMessage monta o resumo da conta: saldo, código de indicação e as
// apostas mais recentes, com contagem do restante além do limite exibido
func accountMessage(u *repo.User, bets []repo.Bet, total int, shown int) string {
	var b strings.Builder
	b.WriteString("💰 *Your Account Details:*\n")
	fmt.Fprintf(&b, "🔹 Balance: %d coins\n", u.CoinsBalance)
	fmt.Fprintf(&b, "🔹 Referral Code: %s\n\n", u.ReferralCode)
	b.WriteString("📜 *Your Recent Bet History:*\n")

	if len(bets) == 0 {
		b.WriteString("You haven't placed any bets yet.\n\n")
	} else {
		for i, bet := range bets {
			matchID := "-"
			if bet.MatchID.Valid {
				matchID = bet.MatchID.String
			}
			fmt.Fprintf(&b, "%d. *Event:* %s\n", i+1, bet.EventName)
			fmt.Fprintf(&b, "   *Match ID:* %s\n", matchID)
			fmt.Fprintf(&b, "   *Cost:* %d coins\n", bet.Cost)
			fmt.Fprintf(&b, "   *Status:* %s %s\n\n", statusEmoji(bet.Status), capitalize(bet.Status))
		}
		if total > shown {
			fmt.Fprintf(&b, "...and %d more bets. Visit 'my account' for the complete history.\n\n", total-shown)
		}
	}

	b.WriteString("🔄 Type 'start' to place a new bet or 'exit' to return to the main menu.")
	return b.String()
}

func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case repo.StatusPlaced:
		return "🔵"
	case repo.StatusWon:
		return "🟢"
	case repo.StatusLost:
		return "🔴"
	default:
		return "⚪"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

const kickoffLayout = "2006-01-02T15:04:05Z"

// formatKickoff renderiza o horário de início no formato legível
// Timestamp fora do padrão é exibido verbatim, nunca vira erro
func formatKickoff(raw string) string {
	t, err := time.Parse(kickoffLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format("January 02, 2006 at 15:04 UTC")
}

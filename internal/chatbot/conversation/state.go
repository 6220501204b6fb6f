package conversation

import "github.com/opiniox/chat-bet-poc/internal/chatbot/catalog"

// Step identifica a etapa do diálogo
type Step string

const (
	StepIdle             Step = "idle"
	StepSelectSport      Step = "select_sport"
	StepSelectTournament Step = "select_tournament"
	StepSelectMatch      Step = "select_match"
	StepPlaceBet         Step = "place_bet"
)

// State é o estado de conversa por usuário, o único portador de contexto
// entre mensagens. Variante etiquetada por Step; payload válido por etapa:
//
//	idle              — nenhum
//	select_sport      — nenhum
//	select_tournament — Sport
//	select_match      — Sport, Tournament, Matches (snapshot com odds)
//	place_bet         — Sport, Tournament, Match (com odds)
//
// Serializa pra JSON pra viver num armazenamento chave-valor injetável
type State struct {
	Step       Step            `json:"step"`
	Sport      string          `json:"sport,omitempty"`
	Tournament string          `json:"tournament,omitempty"`
	Matches    []catalog.Match `json:"matches,omitempty"`
	Match      *catalog.Match  `json:"match,omitempty"`
}

// Idle é o estado de repouso; ausência de entrada no store equivale a ele
func Idle() State { return State{Step: StepIdle} }

func (s State) IsIdle() bool { return s.Step == "" || s.Step == StepIdle }

package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Tournament é um campeonato dentro de um esporte
// Somente torneios ativos são listados e selecionáveis
type Tournament struct {
	Title  string `json:"title"`
	Key    string `json:"key"`
	Active bool   `json:"active"`
}

// Outcome é um lado apostável de uma partida, com preço pré-calculado
type Outcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type Odds struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Match é uma partida com odds embutidas, como retornada pelo provedor
type Match struct {
	ID           string `json:"id"`
	SportKey     string `json:"sport_key"`
	HomeTeam     string `json:"home_team"`
	AwayTeam     string `json:"away_team"`
	CommenceTime string `json:"commence_time"`
	Odds         Odds   `json:"odds"`
}

// Snapshot é o catálogo esporte -> torneios, buscado uma vez na subida
// do processo. Imutável depois de montado; seguro pra compartilhar sem lock
type Snapshot map[string][]Tournament

// Sports retorna as chaves de esporte em ordem alfabética,
// garantindo numeração estável entre mensagens
func (s Snapshot) Sports() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResolveSport aceita nome exato (case-insensitive) ou índice 1-based
// A seleção por nome só existe aqui: torneio, partida e resultado são
// sempre numéricos
func (s Snapshot) ResolveSport(input string) (string, bool) {
	sports := s.Sports()
	for i, sport := range sports {
		if strings.EqualFold(sport, input) {
			return sports[i], true
		}
	}
	if idx, err := strconv.Atoi(input); err == nil && idx >= 1 && idx <= len(sports) {
		return sports[idx-1], true
	}
	return "", false
}

// ActiveTournaments filtra os torneios ativos do esporte, preservando a ordem
func (s Snapshot) ActiveTournaments(sport string) []Tournament {
	var active []Tournament
	for _, t := range s[sport] {
		if t.Active {
			active = append(active, t)
		}
	}
	return active
}

// EventKey deriva a chave de consulta de partidas a partir da chave do torneio
func EventKey(tournamentKey string) string {
	return strings.ReplaceAll(strings.ToLower(tournamentKey), " ", "_")
}

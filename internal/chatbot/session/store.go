package session

import (
	"context"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/conversation"
)

// Store guarda o estado de conversa por identificador de usuário
// Chave ausente equivale a idle. Transiente por contrato: perder o
// conteúdo num restart é aceitável, o usuário recomeça com 'start'
//
// Implementações: Memory (testes, processo único) e Redis (produção)
type Store interface {
	Get(ctx context.Context, id string) (conversation.State, bool, error)
	Put(ctx context.Context, id string, st conversation.State) error
	Delete(ctx context.Context, id string) error
}

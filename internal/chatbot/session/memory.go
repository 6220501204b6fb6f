package session

import (
	"context"
	"sync"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/conversation"
)

// Memory é o store em memória de processo
type Memory struct {
	mu     sync.RWMutex
	states map[string]conversation.State
}

func NewMemory() *Memory {
	return &Memory{states: make(map[string]conversation.State)}
}

func (m *Memory) Get(_ context.Context, id string) (conversation.State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[id]
	if !ok {
		return conversation.Idle(), false, nil
	}
	return st, true, nil
}

func (m *Memory) Put(_ context.Context, id string, st conversation.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = st
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

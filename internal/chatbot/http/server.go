package http

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/conversation"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/repo"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/session"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/twilio"
	"github.com/opiniox/chat-bet-poc/internal/shared/metrics"
	"github.com/opiniox/chat-bet-poc/pkg/contracts/events"
)

// AccountStore é a visão do repositório usada pelo dispatcher
type AccountStore interface {
	FindByNumber(ctx context.Context, number string) (*repo.User, error)
	Create(ctx context.Context, number string, initialBalance int64, referralCode string) (*repo.User, error)
}

// MessageSender entrega a resposta no canal do usuário
type MessageSender interface {
	Send(ctx context.Context, to, body string) error
}

// EventPublisher emite o evento de aposta colocada; best-effort
type EventPublisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
}

// Server é o dispatcher do webhook: autentica o transporte, carrega a
// conta, delega pra máquina de conversação e persiste o resultado
type Server struct {
	log            *zap.Logger
	accounts       AccountStore
	sessions       session.Store
	machine        *conversation.Machine
	sender         MessageSender
	validator      *twilio.Validator
	publisher      EventPublisher
	initialBalance int64

	// serialização por usuário: duas mensagens do mesmo número nunca
	// intercalam leitura de estado com escrita defasada
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewServer(log *zap.Logger, accounts AccountStore, sessions session.Store, machine *conversation.Machine,
	sender MessageSender, validator *twilio.Validator, publisher EventPublisher, initialBalance int64) *Server {
	return &Server{
		log:            log,
		accounts:       accounts,
		sessions:       sessions,
		machine:        machine,
		sender:         sender,
		validator:      validator,
		publisher:      publisher,
		initialBalance: initialBalance,
		locks:          make(map[string]*sync.Mutex),
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/twilio-webhook/", s.receiveMessage) // POST
	return mux
}

func (s *Server) receiveMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Twilio-Signature")
	if !s.validator.Validate(requestURL(r), r.PostForm, signature) {
		metrics.SignatureRejections.Inc()
		s.log.Warn("invalid webhook signature", zap.String("remote", r.RemoteAddr))
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	from := strings.TrimSpace(r.PostForm.Get("From"))
	body := strings.TrimSpace(r.PostForm.Get("Body"))

	// sem remetente: 200 vazio pra não provocar retry do transporte
	if from == "" {
		s.log.Warn("webhook without sender")
		w.WriteHeader(http.StatusOK)
		return
	}

	metrics.MessagesReceived.Inc()

	lock := s.userLock(from)
	lock.Lock()
	defer lock.Unlock()

	ctx := r.Context()

	user, created, err := s.loadOrCreateUser(ctx, from)
	if err != nil {
		s.log.Error("account load failed", zap.String("from", from), zap.Error(err))
		// falha interna não vira 5xx: o transporte reenviaria a mesma
		// mensagem, inclusive uma colocação de aposta
		w.WriteHeader(http.StatusOK)
		return
	}
	if created {
		s.deliver(ctx, from, conversation.WelcomeMessage(s.initialBalance))
		// segue processando a mensagem recebida normalmente
	}

	st, _, err := s.sessions.Get(ctx, from)
	if err != nil {
		s.log.Error("session load failed", zap.String("from", from), zap.Error(err))
		st = conversation.Idle()
	}

	res := s.machine.Handle(ctx, user, st, body)

	// estado primeiro, resposta depois: a próxima mensagem do usuário
	// sempre enxerga o estado que a resposta descreve
	if res.Next.IsIdle() {
		if err := s.sessions.Delete(ctx, from); err != nil {
			s.log.Error("session delete failed", zap.String("from", from), zap.Error(err))
		}
	} else {
		if err := s.sessions.Put(ctx, from, res.Next); err != nil {
			s.log.Error("session save failed", zap.String("from", from), zap.Error(err))
		}
	}

	s.deliver(ctx, from, res.Reply)

	if res.Placed != nil {
		metrics.BetsPlaced.Inc()
		s.publishPlaced(ctx, user, res)
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) loadOrCreateUser(ctx context.Context, from string) (*repo.User, bool, error) {
	user, err := s.accounts.FindByNumber(ctx, from)
	if err == nil {
		return user, false, nil
	}
	if err != repo.ErrNotFound {
		return nil, false, err
	}

	user, err = s.accounts.Create(ctx, from, s.initialBalance, newReferralCode())
	if err != nil {
		return nil, false, err
	}
	s.log.Info("new user registered", zap.String("from", from))
	return user, true, nil
}

func (s *Server) deliver(ctx context.Context, to, body string) {
	if err := s.sender.Send(ctx, to, body); err != nil {
		metrics.SendFailures.Inc()
		s.log.Error("outbound send failed", zap.String("to", to), zap.Error(err))
	}
}

func (s *Server) publishPlaced(ctx context.Context, user *repo.User, res conversation.Result) {
	if s.publisher == nil {
		return
	}
	e := events.BetPlaced{
		BetID:     res.Placed.ID,
		UserID:    user.ID,
		SportKey:  res.Placed.SportKey,
		EventName: res.Placed.EventName,
		MatchID:   res.Placed.MatchID.String,
		Outcome:   res.Outcome,
		Price:     res.Price,
		CostCoins: res.Placed.Cost,
	}
	if err := s.publisher.PublishBetPlaced(ctx, e); err != nil {
		s.log.Error("publish bet_placed failed", zap.Int64("bet_id", e.BetID), zap.Error(err))
	}
}

func (s *Server) userLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// requestURL reconstrói o URL público assinado pelo transporte
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func newReferralCode() string {
	return strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
}

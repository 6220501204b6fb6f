package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/opiniox/chat-bet-poc/internal/chatbot/catalog"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/conversation"
	chttp "github.com/opiniox/chat-bet-poc/internal/chatbot/http"
	kpub "github.com/opiniox/chat-bet-poc/internal/chatbot/producer"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/repo"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/session"
	"github.com/opiniox/chat-bet-poc/internal/chatbot/twilio"
	"github.com/opiniox/chat-bet-poc/internal/shared/cache"
	"github.com/opiniox/chat-bet-poc/internal/shared/config"
	"github.com/opiniox/chat-bet-poc/internal/shared/db"
	"github.com/opiniox/chat-bet-poc/internal/shared/kafka"
	"github.com/opiniox/chat-bet-poc/internal/shared/logger"
	"github.com/opiniox/chat-bet-poc/internal/shared/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config: %w", err))
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("env", cfg.Env))

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	repository := repo.NewPostgres(pg)
	if err := repository.EnsureSchema(context.Background()); err != nil {
		log.Fatal("schema", zap.Error(err))
	}
	log.Info("postgres connected")

	// Redis (estado de conversa)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()
	sessions := session.NewRedis(rdb, cfg.SessionTTL)
	log.Info("redis connected")

	// Kafka writer (topic bet_placed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer writer.Close()
	publisher := kpub.NewKafkaPublisher(writer, cfg.TopicBetPlaced)

	// Catálogo: buscado uma vez na subida; falha deixa o catálogo vazio
	// mas não derruba o processo
	gateway := catalog.NewClient(cfg.OddsAPIBaseURL, cfg.OddsBearerToken, log)
	snapshot := fetchSnapshot(gateway, log)

	seedLedger(repository, snapshot, cfg.BetCostCoins, log)

	machine := conversation.NewMachine(snapshot, gateway, repository, cfg.BetCostCoins, log)

	sender := twilio.NewSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber, cfg.TwilioAPIBase)
	validator := twilio.NewValidator(cfg.WebhookSigningSecret)

	api := chttp.NewServer(log, repository, sessions, machine, sender, validator, publisher, cfg.InitialBalanceCoins)

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("pg: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health", zap.String("addr", ":"+cfg.MetricsPort))

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	log.Info("chatbot-service listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}

func fetchSnapshot(gateway *catalog.Client, log *zap.Logger) catalog.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snapshot := gateway.FetchCatalog(ctx)
	if len(snapshot) == 0 {
		log.Error("sports catalog empty after startup fetch; 'start' will show no sports")
	} else {
		log.Info("sports catalog fetched", zap.Int("sports", len(snapshot)))
	}
	return snapshot
}

// seedLedger insere apostas placeholder por torneio ativo, uma única vez,
// apenas quando o ledger está vazio
func seedLedger(repository *repo.Postgres, snapshot catalog.Snapshot, cost int64, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := repository.CountAllBets(ctx)
	if err != nil {
		log.Error("seed: count bets failed", zap.Error(err))
		return
	}
	if existing > 0 {
		return
	}

	var seeds []repo.Bet
	for _, sport := range snapshot.Sports() {
		for _, t := range snapshot.ActiveTournaments(sport) {
			seeds = append(seeds, repo.Bet{
				SportKey:  t.Key,
				EventName: t.Title,
				MatchID:   sql.NullString{},
				Status:    repo.StatusPending,
				Cost:      cost,
			})
		}
	}
	if len(seeds) == 0 {
		return
	}

	if err := repository.SeedBets(ctx, seeds); err != nil {
		log.Error("seed: insert failed", zap.Error(err))
		return
	}
	log.Info("seed bets inserted", zap.Int("count", len(seeds)))
}

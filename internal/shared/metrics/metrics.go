package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores do fluxo de conversação
var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_messages_received_total",
		Help: "Mensagens recebidas no webhook (após validação de assinatura).",
	})

	SignatureRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_signature_rejections_total",
		Help: "Requisições rejeitadas por assinatura inválida.",
	})

	BetsPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_bets_placed_total",
		Help: "Apostas registradas com sucesso.",
	})

	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatbot_send_failures_total",
		Help: "Falhas de entrega de mensagem de saída.",
	})
)

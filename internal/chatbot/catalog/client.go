package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client consome o provedor externo de esportes/partidas
// Todas as chamadas são bearer-autenticadas e tratadas como não confiáveis:
// qualquer falha (timeout, status != 2xx, corpo inválido) vira resultado
// vazio pro chamador, nunca erro dentro da máquina de estados
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Log     *zap.Logger
}

func NewClient(baseURL, token string, log *zap.Logger) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		Log:     log,
	}
}

// FetchCatalog busca o catálogo completo esporte -> torneios
// Retorna Snapshot vazio em qualquer falha
func (c *Client) FetchCatalog(ctx context.Context) Snapshot {
	var snap Snapshot
	if err := c.getJSON(ctx, c.BaseURL+"/fetch_sports_list", &snap); err != nil {
		c.Log.Error("fetch sports catalog failed", zap.Error(err))
		return Snapshot{}
	}
	return snap
}

// FetchMatches busca as partidas (com odds embutidas) de um torneio
// Retorna slice vazio em qualquer falha
func (c *Client) FetchMatches(ctx context.Context, eventKey string) []Match {
	var matches []Match
	u := c.BaseURL + "/fetch_event_list?event_key=" + url.QueryEscape(eventKey)
	if err := c.getJSON(ctx, u, &matches); err != nil {
		c.Log.Error("fetch matches failed", zap.String("event_key", eventKey), zap.Error(err))
		return nil
	}
	return matches
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("odds provider http %d", res.StatusCode)
	}

	return json.NewDecoder(res.Body).Decode(dst)
}

package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sender entrega mensagens de saída pela API REST do Twilio
// Best-effort: o chamador loga falhas, a transição de estado já ocorreu
type Sender struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
	HTTP       *http.Client
}

func NewSender(accountSID, authToken, from, baseURL string) *Sender {
	return &Sender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		From:       from,
		BaseURL:    baseURL,
		HTTP:       &http.Client{Timeout: 5 * time.Second},
	}
}

// Send envia uma mensagem de texto pro destinatário
func (s *Sender) Send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.BaseURL, s.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("twilio send http %d", res.StatusCode)
	}
	return nil
}

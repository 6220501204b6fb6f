package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
)

// Validator confere a assinatura X-Twilio-Signature do webhook
// Esquema: HMAC-SHA1 do URL completo concatenado com cada parâmetro do
// form (chave+valor, chaves em ordem lexicográfica), em base64
type Validator struct {
	secret []byte
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret)}
}

// Validate reconstrói a assinatura esperada e compara em tempo constante
func (v *Validator) Validate(fullURL string, params url.Values, signature string) bool {
	expected := v.sign(fullURL, params)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

func (v *Validator) sign(fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(sha1.New, v.secret)
	mac.Write([]byte(fullURL))
	for _, k := range keys {
		mac.Write([]byte(k))
		// Twilio assina só o primeiro valor de cada chave
		mac.Write([]byte(params.Get(k)))
	}

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

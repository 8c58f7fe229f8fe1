package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer implements the gateway checkout signature:
// hex(HMAC-SHA256(secret, "{order_id}|{payment_id}")).
type Signer struct{ secret []byte }

func NewSigner(secret string) Signer { return Signer{secret: []byte(secret)} }

func (s Signer) Sign(externalOrderID, externalPaymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(externalOrderID + "|" + externalPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time. An empty secret never verifies.
func (s Signer) Verify(externalOrderID, externalPaymentID, signature string) bool {
	if len(s.secret) == 0 || signature == "" {
		return false
	}
	expected := s.Sign(externalOrderID, externalPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyBody checks a webhook signature: hex(HMAC-SHA256(secret, body)).
func (s Signer) VerifyBody(body []byte, signature string) bool {
	if len(s.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write(body)
	return hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature))
}

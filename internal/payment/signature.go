package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the gateway's callback signature: hex-encoded
// HMAC-SHA256 over "<order_ref>|<payment_id>" with the merchant
// secret, per the gateway's documented scheme.
func Sign(secret, orderRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time.
// Unsigned or mis-signed payloads are never trusted.
func VerifySignature(secret, orderRef, paymentID, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(secret, orderRef, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

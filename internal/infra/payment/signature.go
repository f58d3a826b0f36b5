package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifyGatewaySignature checks the processor's HMAC over a completed
// checkout: signature = HMAC-SHA256(orderId + "|" + paymentId, secret).
// Used as a cheap local pre-check before the server-side /verify-success call.
func VerifyGatewaySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(expected, signature)
}

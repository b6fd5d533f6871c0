package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign вычисляет hex-подпись HMAC-SHA256 пары "ордер|платёж" на секретном ключе.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature пересчитывает подпись на серверном ключе и сравнивает её
// с присланной за константное время. Клиентским утверждениям об успехе
// платежа доверять нельзя — действительна только сошедшаяся подпись.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := Sign(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

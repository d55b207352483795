package paymentgateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader — заголовок, в котором шлюз передаёт подпись тела webhook.
const SignatureHeader = "X-Gateway-Signature"

// ComputeSignature считает HMAC-SHA256 от сырого тела запроса
// на общем секрете и возвращает base64-строку.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет подпись тела webhook. Сравнение выполняется
// за постоянное время. Тело должно быть ровно теми байтами, которые
// подписал шлюз: любая переупаковка JSON до проверки ломает подпись.
func VerifySignature(secret string, body []byte, signature string) bool {
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

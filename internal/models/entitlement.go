// Package models содержит доменные структуры сервиса клонирования голоса:
// права пользователя на создание голосов (entitlement), записи аудита покупок,
// сохранённые голоса и пользователей.
package models

import "time"

// Источники пополнения счётчика купленных слотов.
// PurchaseSourceWebhook — авторитетный путь через webhook платёжного шлюза,
// PurchaseSourceClientFallback — компенсирующая запись от клиента,
// если webhook не пришёл за отведённое время.
const (
	PurchaseSourceWebhook        = "webhook"
	PurchaseSourceClientFallback = "client_fallback"
)

// PurchaseStatusCompleted — единственный моделируемый статус покупки.
const PurchaseStatusCompleted = "completed"

// Entitlement представляет запись о правах пользователя:
// сколько дополнительных голосовых слотов он купил.
// Запись создаётся лениво при первой успешной покупке,
// счётчик PurchasedUnits только растёт (возвраты не моделируются).
type Entitlement struct {
	UserUID        string     `json:"user_uid"`
	PurchasedUnits int        `json:"purchased_units"`
	LastSessionID  *string    `json:"last_session_id,omitempty"`
	LastPurchaseAt *time.Time `json:"last_purchase_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// Purchase представляет запись аудита по одной оплаченной checkout-сессии.
// SessionID уникален: одна сессия никогда не зачисляется дважды,
// даже при повторной доставке webhook или гонке с компенсирующей записью.
type Purchase struct {
	SessionID    string    `json:"session_id"`
	UserUID      string    `json:"user_uid"`
	UnitsGranted int       `json:"units_granted"`
	Amount       int       `json:"amount"` // сумма в минимальных единицах валюты
	Source       string    `json:"source"` // webhook или client_fallback
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// FulfillmentEvent — сообщение о зачислении покупки, публикуемое
// в очередь уведомлений после успешного применения транзакции.
type FulfillmentEvent struct {
	SessionID    string    `json:"session_id"`
	UserUID      string    `json:"user_uid"`
	UnitsGranted int       `json:"units_granted"`
	Amount       int       `json:"amount"`
	Source       string    `json:"source"`
	Timestamp    time.Time `json:"timestamp"`
}

// Package reconcile реализует клиентскую сверку покупки после редиректа
// со страницы оплаты: серию повторных чтений счётчика прав по расписанию
// и компенсирующую запись, если webhook так и не зачислил покупку.
package reconcile

import (
	"fmt"
	"net/url"
)

// Outcome — результат разбора редиректа платёжного шлюза.
type Outcome string

const (
	// OutcomeNone — в URL нет платёжных параметров.
	OutcomeNone Outcome = "none"
	// OutcomeSuccess — оплата завершена, требуется сверка зачисления.
	OutcomeSuccess Outcome = "success"
	// OutcomeCancelled — пользователь отменил оплату.
	OutcomeCancelled Outcome = "cancelled"
)

// Redirect — разобранные параметры редиректа.
type Redirect struct {
	Outcome   Outcome
	SessionID string
	// CleanURL — исходный URL без платёжных параметров. Клиент подставляет
	// его в адресную строку, чтобы обновление страницы не запускало
	// сверку повторно.
	CleanURL string
}

// ParseRedirect разбирает URL, на который платёжный шлюз вернул
// пользователя, и извлекает исход оплаты и идентификатор сессии.
func ParseRedirect(rawURL string) (*Redirect, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("reconcile.ParseRedirect: %w", err)
	}

	q := u.Query()
	res := &Redirect{Outcome: OutcomeNone}

	switch q.Get("payment") {
	case "success":
		res.Outcome = OutcomeSuccess
		res.SessionID = q.Get("session_id")
	case "cancelled":
		res.Outcome = OutcomeCancelled
	default:
		res.CleanURL = rawURL
		return res, nil
	}

	q.Del("payment")
	q.Del("session_id")
	u.RawQuery = q.Encode()
	res.CleanURL = u.String()
	return res, nil
}

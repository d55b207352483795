package paymentgateway

// CreateCheckoutSessionRequest запрос на создание checkout-сессии.
// Metadata непрозрачно возвращается шлюзом в webhook-событии —
// туда кладутся user_uid и units_to_grant.
type CreateCheckoutSessionRequest struct {
	Mode        string            `json:"mode"`
	ProductName string            `json:"product_name"`
	UnitAmount  int               `json:"unit_amount"` // в минимальных единицах валюты
	Currency    string            `json:"currency"`
	Quantity    int               `json:"quantity"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

// CheckoutSession ответ шлюза при создании сессии.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event — конверт webhook-события шлюза.
// Доставка как минимум однократная: одно и то же событие может прийти
// несколько раз, в том числе параллельно.
type Event struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID          string            `json:"id"`           // идентификатор checkout-сессии
			AmountTotal int               `json:"amount_total"` // итоговая сумма
			Metadata    map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// EventCheckoutCompleted — единственный тип события, приводящий к зачислению.
const EventCheckoutCompleted = "checkout.session.completed"

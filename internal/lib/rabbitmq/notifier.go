package rabbitmq

import (
	"github.com/streadway/amqp"

	"github.com/retainvoice/voice-service/internal/models"
)

// Notifier публикует события зачисления покупок в exchange уведомлений.
type Notifier struct {
	ch *amqp.Channel
}

// NewNotifier создаёт Notifier поверх открытого канала.
func NewNotifier(ch *amqp.Channel) *Notifier {
	return &Notifier{ch: ch}
}

// PublishPurchaseFulfilled публикует событие о зачисленной покупке.
func (n *Notifier) PublishPurchaseFulfilled(event models.FulfillmentEvent) error {
	return PublishMessage(n.ch, Exchange, RoutingKeyPurchaseFulfilled, event)
}

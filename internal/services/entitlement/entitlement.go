// Package entitlement содержит бизнес-логику зачисления покупок голосовых
// слотов и чтения прав пользователя.
//
// Зачисление идемпотентно по session_id: авторитетный путь (webhook шлюза)
// и компенсирующий путь (запись от клиента после таймаута ожидания)
// проходят через одну и ту же атомарную транзакцию хранилища, поэтому
// поздно пришедший webhook после компенсации становится no-op, и наоборот.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
)

// ErrMalformedEvent возвращается, когда в событии не хватает обязательных
// полей (user_uid, session_id, units_to_grant). Такое событие отклоняется
// без изменения состояния и без повторной доставки: ретрай его не исправит.
var ErrMalformedEvent = errors.New("malformed event metadata")

// Repository определяет методы хранилища прав и аудита покупок.
type Repository interface {
	// ApplyPurchase атомарно зачисляет покупку, false — дубль по session_id.
	ApplyPurchase(ctx context.Context, p models.Purchase) (bool, error)
	// ReadEntitlement возвращает запись прав, нулевую — если записи нет.
	ReadEntitlement(ctx context.Context, userUID string) (*models.Entitlement, error)
	// ListPurchases возвращает записи аудита покупок пользователя.
	ListPurchases(ctx context.Context, userUID string) ([]*models.Purchase, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Notifier публикует события о зачисленных покупках.
type Notifier interface {
	PublishPurchaseFulfilled(event models.FulfillmentEvent) error
}

// Service реализует бизнес-логику работы с правами пользователей.
type Service struct {
	repo     Repository
	cache    Cache
	notifier Notifier
	log      *slog.Logger
}

// New создает новый экземпляр Service. Notifier может быть nil,
// тогда уведомления не публикуются.
func New(repo Repository, cache Cache, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

func cacheKey(userUID string) string {
	return fmt.Sprintf("entitlement:%s", userUID)
}

// Fulfill зачисляет покупку пользователю. Возвращает true, если счётчик
// был увеличен, и false, если сессия уже зачислена ранее (дубль).
// Ошибки валидации заворачиваются в ErrMalformedEvent; остальные ошибки
// считаются временными — вызывающая сторона отвечает 500, и шлюз
// доставит событие повторно.
func (s *Service) Fulfill(ctx context.Context, p models.Purchase) (bool, error) {
	if p.UserUID == "" || p.SessionID == "" || p.UnitsGranted <= 0 {
		return false, fmt.Errorf("%w: session_id=%q user_uid=%q units=%d",
			ErrMalformedEvent, p.SessionID, p.UserUID, p.UnitsGranted)
	}
	if p.Source == "" {
		p.Source = models.PurchaseSourceWebhook
	}

	applied, err := s.repo.ApplyPurchase(ctx, p)
	if err != nil {
		return false, err
	}
	if !applied {
		s.log.Info("duplicate purchase delivery ignored",
			slog.String("session_id", p.SessionID),
			slog.String("user_uid", p.UserUID))
		return false, nil
	}

	if err := s.cache.Invalidate(cacheKey(p.UserUID)); err != nil {
		s.log.Warn("failed to invalidate entitlement cache",
			slog.String("user_uid", p.UserUID), sl.Err(err))
	}

	if s.notifier != nil {
		event := models.FulfillmentEvent{
			SessionID:    p.SessionID,
			UserUID:      p.UserUID,
			UnitsGranted: p.UnitsGranted,
			Amount:       p.Amount,
			Source:       p.Source,
			Timestamp:    time.Now(),
		}
		if err := s.notifier.PublishPurchaseFulfilled(event); err != nil {
			// Уведомление не участвует в консистентности счётчика.
			s.log.Warn("failed to publish fulfillment event",
				slog.String("session_id", p.SessionID), sl.Err(err))
		}
	}

	s.log.Info("purchase fulfilled",
		slog.String("session_id", p.SessionID),
		slog.String("user_uid", p.UserUID),
		slog.Int("units", p.UnitsGranted),
		slog.String("source", p.Source))
	return true, nil
}

// Get возвращает запись прав пользователя, используя кеш или хранилище.
func (s *Service) Get(ctx context.Context, userUID string) (*models.Entitlement, error) {
	var cached models.Entitlement
	key := cacheKey(userUID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read entitlement cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	result, err := s.repo.ReadEntitlement(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, result, time.Minute); err != nil {
		s.log.Warn("failed to cache entitlement", slog.String("key", key), sl.Err(err))
	}
	return result, nil
}

// ListPurchases возвращает историю покупок пользователя.
func (s *Service) ListPurchases(ctx context.Context, userUID string) ([]*models.Purchase, error) {
	return s.repo.ListPurchases(ctx, userUID)
}

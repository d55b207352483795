// Package voice содержит бизнес-логику работы с клонированными голосами:
// создание через внешний API, список, удаление и синтез речи.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/retainvoice/voice-service/internal/lib/sl"
	"github.com/retainvoice/voice-service/internal/models"
	"github.com/retainvoice/voice-service/internal/voiceprovider"
)

// ErrVoiceLimitReached возвращается, когда пользователь исчерпал
// бесплатные и купленные голосовые слоты.
var ErrVoiceLimitReached = errors.New("voice limit reached")

// ErrForbidden возвращается при попытке использовать чужой голос.
var ErrForbidden = errors.New("forbidden")

// Repository определяет методы хранилища голосов.
type Repository interface {
	CreateVoice(ctx context.Context, voice models.Voice) error
	ReadVoice(ctx context.Context, id string) (*models.Voice, error)
	ListVoices(ctx context.Context, userUID string) ([]*models.Voice, error)
	CountVoices(ctx context.Context, userUID string) (int, error)
	RemoveVoice(ctx context.Context, id, userUID string) (int, error)
}

// Provider описывает внешний API клонирования и синтеза.
type Provider interface {
	CloneVoice(ctx context.Context, name, filename, mimeType string, clip []byte) (*voiceprovider.CloneVoiceResponse, error)
	GenerateSpeech(ctx context.Context, providerVoiceID, text string) ([]byte, error)
}

// Entitlements отдаёт текущие права пользователя для проверки лимита.
type Entitlements interface {
	Get(ctx context.Context, userUID string) (*models.Entitlement, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует бизнес-логику работы с голосами.
type Service struct {
	repo         Repository
	provider     Provider
	entitlements Entitlements
	cache        Cache
	freeVoices   int
	log          *slog.Logger
}

// New создает новый экземпляр Service. freeVoices — сколько голосов
// доступно без покупки.
func New(repo Repository, provider Provider, entitlements Entitlements, cache Cache, freeVoices int, log *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		provider:     provider,
		entitlements: entitlements,
		cache:        cache,
		freeVoices:   freeVoices,
		log:          log,
	}
}

func listCacheKey(userUID string) string {
	return fmt.Sprintf("voices:%s", userUID)
}

// Clone проверяет лимит слотов, клонирует голос через внешний API
// и сохраняет метаданные.
func (s *Service) Clone(ctx context.Context, userUID, name, filename, mimeType string, clip []byte) (*models.Voice, error) {
	count, err := s.repo.CountVoices(ctx, userUID)
	if err != nil {
		return nil, err
	}
	ent, err := s.entitlements.Get(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if count >= s.freeVoices+ent.PurchasedUnits {
		return nil, fmt.Errorf("%w: used=%d allowed=%d",
			ErrVoiceLimitReached, count, s.freeVoices+ent.PurchasedUnits)
	}

	cloned, err := s.provider.CloneVoice(ctx, name, filename, mimeType, clip)
	if err != nil {
		return nil, err
	}

	voice := models.Voice{
		ID:              uuid.New().String(),
		UserUID:         userUID,
		ProviderVoiceID: cloned.ID,
		Name:            name,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreateVoice(ctx, voice); err != nil {
		return nil, err
	}

	if err := s.cache.Invalidate(listCacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate voices cache", slog.String("user_uid", userUID), sl.Err(err))
	}

	s.log.Info("voice cloned",
		slog.String("user_uid", userUID),
		slog.String("voice_id", voice.ID))
	return &voice, nil
}

// List возвращает голоса пользователя, используя кеш или хранилище.
func (s *Service) List(ctx context.Context, userUID string) ([]*models.Voice, error) {
	var cached []*models.Voice
	key := listCacheKey(userUID)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read voices cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	result, err := s.repo.ListVoices(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(key, result, time.Hour); err != nil {
		s.log.Warn("failed to cache voices", slog.String("key", key), sl.Err(err))
	}
	return result, nil
}

// Remove удаляет голос пользователя и возвращает количество удалённых строк.
func (s *Service) Remove(ctx context.Context, id, userUID string) (int, error) {
	if err := s.cache.Invalidate(listCacheKey(userUID)); err != nil {
		s.log.Warn("failed to invalidate voices cache", slog.String("user_uid", userUID), sl.Err(err))
	}
	return s.repo.RemoveVoice(ctx, id, userUID)
}

// Speak синтезирует речь сохранённым голосом пользователя.
// Голос другого пользователя недоступен.
func (s *Service) Speak(ctx context.Context, userUID, voiceID, text string) ([]byte, error) {
	voice, err := s.repo.ReadVoice(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	if voice.UserUID != userUID {
		return nil, fmt.Errorf("voice %s: %w", voiceID, ErrForbidden)
	}
	return s.provider.GenerateSpeech(ctx, voice.ProviderVoiceID, text)
}

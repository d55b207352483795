package models

import "time"

// Voice представляет сохранённый клонированный голос пользователя.
// ProviderVoiceID — непрозрачный идентификатор модели голоса,
// выданный внешним API клонирования.
type Voice struct {
	ID              string    `json:"id"`
	UserUID         string    `json:"user_uid"`
	ProviderVoiceID string    `json:"provider_voice_id"`
	Name            string    `json:"name"`
	CreatedAt       time.Time `json:"created_at"`
}

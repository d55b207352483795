// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	PaymentGateway          `yaml:"payment_gateway"`
	VoiceProvider           `yaml:"voice_provider"`
	RabbitConnection        `yaml:"rabbit_connection"`
	Reconcile               `yaml:"reconcile"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// PaymentGateway настройки платёжного шлюза: ключи доступа, секрет подписи
// webhook и параметры продаваемого пакета слотов.
type PaymentGateway struct {
	APIKey        string `yaml:"api_key" env:"GATEWAY_API_KEY"`
	APIURL        string `yaml:"api_url" env-default:"https://api.gateway.example/v1"`
	WebhookSecret string `yaml:"webhook_secret" env:"GATEWAY_WEBHOOK_SECRET"`
	ClientURL     string `yaml:"client_url" env-default:"http://localhost:3000"`
	PackName      string `yaml:"pack_name" env-default:"4 Voice Pack"`
	PackUnits     int    `yaml:"pack_units" env-default:"4"`
	PackAmount    int    `yaml:"pack_amount" env-default:"499"` // в центах
}

// VoiceProvider настройки внешнего API клонирования голоса и синтеза речи.
type VoiceProvider struct {
	VoiceAPIKey     string        `yaml:"api_key" env:"VOICE_API_KEY"`
	VoiceAPIURL     string        `yaml:"api_url" env-default:"https://api.cartesia.ai"`
	VoiceAPIVersion string        `yaml:"api_version" env-default:"2024-06-10"`
	VoiceTimeout    time.Duration `yaml:"timeout" env-default:"60s"`
	FreeVoices      int           `yaml:"free_voices" env-default:"1"`
}

// RabbitConnection структура для настройки подключения к rabbitmq
type RabbitConnection struct {
	RabbitURL     string        `yaml:"rabbit_url"`
	RabbitRetries int           `yaml:"rabbit_retries" env-default:"5"`
	RabbitDelay   time.Duration `yaml:"rabbit_delay" env-default:"2s"`
}

// Reconcile расписание повторных проверок зачисления после редиректа
// со страницы оплаты. Задаётся списком задержек, не зашивается в код.
type Reconcile struct {
	Schedule []time.Duration `yaml:"schedule"`
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

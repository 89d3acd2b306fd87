// Package config reads the functions' environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	StoreDynamoDB = "dynamodb"
	StoreSQLite   = "sqlite"

	TransportHTTP   = "http"
	TransportLambda = "lambda"
)

type Config struct {
	Store    StoreConfig
	Chat     ChatConfig
	WhatsApp WhatsAppConfig

	Timezone       string
	Location       *time.Location
	CountryPrefix  string
	QueryPrefix    string
	EventsQueueURL string
	LogLevel       string
	Port           string
}

type StoreConfig struct {
	Driver     string
	Table      string
	SQLitePath string
}

type ChatConfig struct {
	URL          string
	Transport    string
	FunctionName string
	SecretParam  string
	Timeout      time.Duration
}

type WhatsAppConfig struct {
	BaseURL          string
	Version          string
	PhoneNumberID    string
	Token            string
	VerifyToken      string
	FollowUpTemplate string
}

type Option func(*defaults)

type defaults struct {
	storeDriver string
}

// WithDefaultStoreDriver changes the driver used when STORE_DRIVER is unset.
func WithDefaultStoreDriver(driver string) Option {
	return func(d *defaults) {
		d.storeDriver = driver
	}
}

// Load reads configuration from environment variables and validates it.
func Load(opts ...Option) (*Config, error) {
	d := defaults{storeDriver: StoreDynamoDB}
	for _, opt := range opts {
		opt(&d)
	}

	cfg := &Config{
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", d.storeDriver)),
			Table:      getEnv("CONVERSATION_TABLE", "conversation"),
			SQLitePath: getEnv("SQLITE_PATH", "./data/conversations.db"),
		},
		Chat: ChatConfig{
			URL:          getEnv("SMART_CHAT_URL", "http://localhost:8080"),
			Transport:    strings.ToLower(getEnv("CHAT_TRANSPORT", TransportHTTP)),
			FunctionName: getEnv("CHAT_INTERFACE_FUNCTION", "musafir-interface"),
			SecretParam:  getEnv("SECRET_TOKEN_PARAM", "WASecretToken"),
			Timeout:      getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:          getEnv("WHATSAPP_API_BASE_URL", "https://graph.facebook.com"),
			Version:          getEnv("WHATSAPP_API_VERSION", "v19.0"),
			PhoneNumberID:    getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			Token:            getEnv("WHATSAPP_TOKEN", ""),
			VerifyToken:      getEnv("WHATSAPP_VERIFY_TOKEN", ""),
			FollowUpTemplate: getEnv("WHATSAPP_FOLLOWUP_TEMPLATE", "interested_trip1"),
		},
		Timezone:       getEnv("CONVERSATION_TIMEZONE", "UTC"),
		CountryPrefix:  getEnv("COUNTRY_PREFIX", "91"),
		QueryPrefix:    getEnv("QUERY_PREFIX", "get="),
		EventsQueueURL: getEnv("EVENTS_QUEUE_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnv("PORT", "8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings shared by every function and resolves the
// conversation timezone.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("CONVERSATION_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.Location = loc

	switch c.Store.Driver {
	case StoreDynamoDB:
		if c.Store.Table == "" {
			return errors.New("CONVERSATION_TABLE cannot be empty")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDynamoDB, StoreSQLite, c.Store.Driver)
	}

	switch c.Chat.Transport {
	case TransportHTTP:
		if c.Chat.URL == "" {
			return errors.New("SMART_CHAT_URL cannot be empty")
		}
	case TransportLambda:
		if c.Chat.FunctionName == "" {
			return errors.New("CHAT_INTERFACE_FUNCTION cannot be empty")
		}
	default:
		return fmt.Errorf("CHAT_TRANSPORT must be %q or %q, got %q", TransportHTTP, TransportLambda, c.Chat.Transport)
	}

	if c.Chat.Timeout <= 0 {
		return errors.New("HTTP_TIMEOUT must be > 0")
	}
	if c.QueryPrefix == "" {
		return errors.New("QUERY_PREFIX cannot be empty")
	}
	return nil
}

// ValidateWhatsApp checks the settings needed to send WhatsApp messages.
func (c *Config) ValidateWhatsApp() error {
	if c.WhatsApp.Version == "" {
		return errors.New("WHATSAPP_API_VERSION cannot be empty")
	}
	if c.WhatsApp.PhoneNumberID == "" {
		return errors.New("WHATSAPP_PHONE_NUMBER_ID cannot be empty")
	}
	if c.WhatsApp.Token == "" {
		return errors.New("WHATSAPP_TOKEN cannot be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts a Go duration ("15s") or a whole number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
		return d
	}
	if n := getEnvInt(key, -1); n >= 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string   `validate:"required,numeric"`
	AllowedOrigins []string `validate:"min=1"`
	LogLevel       string
	Env            string

	// WebSocket
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	// Auth
	SkipAuth   bool
	OIDCIssuer string

	// CRM backend
	CRMBaseURL string `validate:"required,url"`
	CRMToken   string
	CRMTimeout time.Duration

	// Telephony
	PhoneRegion  string `validate:"len=2"`
	WebhookToken string // shared secret of the PBX webhook, empty disables the check

	// Workspace
	WrapUpDelay    time.Duration
	SubmitTimeout  time.Duration
	RosterInterval time.Duration
	ClockInterval  time.Duration

	// Messaging
	SMTPHost      string
	SMTPPort      int `validate:"min=1,max=65535"`
	SMTPUser      string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string `validate:"omitempty,email"`
	SMSGatewayURL string `validate:"omitempty,url"`
	SMSToken      string
	SMSSender     string
	SMSPerSecond  float64 `validate:"gt=0"`

	// QR codes
	QRSize int `validate:"min=64,max=2048"`

	// Events
	EventsMode string `validate:"oneof=noop amqp"`
	AMQPURL    string `validate:"required_if=EventsMode amqp"`
	AMQPQueue  string
}

var validate = validator.New()

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Env:            getEnv("ENV", "development"),
		SkipAuth:       getEnv("SKIP_AUTH", "false") == "true",
		OIDCIssuer:     getEnv("OIDC_ISSUER", ""),
		CRMBaseURL:     getEnv("CRM_BASE_URL", "http://localhost:3000/api"),
		CRMToken:       getEnv("CRM_TOKEN", ""),
		PhoneRegion:    strings.ToUpper(getEnv("PHONE_REGION", "SK")),
		WebhookToken:   getEnv("TELEPHONY_WEBHOOK_TOKEN", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		SMTPFromName:   getEnv("SMTP_FROM_NAME", "Agent Desk"),
		SMTPFromEmail:  getEnv("SMTP_FROM_EMAIL", ""),
		SMSGatewayURL:  getEnv("SMS_GATEWAY_URL", ""),
		SMSToken:       getEnv("SMS_GATEWAY_TOKEN", ""),
		SMSSender:      getEnv("SMS_SENDER", ""),
		EventsMode:     getEnv("EVENTS_MODE", "noop"),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPQueue:      getEnv("AMQP_QUEUE", "agentdesk.events"),
	}

	var err error

	// WebSocket timeouts
	if config.WSReadTimeout, err = seconds("WS_READ_TIMEOUT", "60"); err != nil {
		return nil, err
	}
	if config.WSWriteTimeout, err = seconds("WS_WRITE_TIMEOUT", "10"); err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	if config.CRMTimeout, err = seconds("CRM_TIMEOUT", "15"); err != nil {
		return nil, err
	}
	if config.SubmitTimeout, err = seconds("SUBMIT_TIMEOUT", "30"); err != nil {
		return nil, err
	}

	wrapUpMillis, err := strconv.Atoi(getEnv("WRAP_UP_DELAY_MS", "3000"))
	if err != nil {
		return nil, fmt.Errorf("invalid WRAP_UP_DELAY_MS: %w", err)
	}
	config.WrapUpDelay = time.Duration(wrapUpMillis) * time.Millisecond

	if config.RosterInterval, err = time.ParseDuration(getEnv("ROSTER_INTERVAL", "1s")); err != nil {
		return nil, fmt.Errorf("invalid ROSTER_INTERVAL: %w", err)
	}
	if config.ClockInterval, err = time.ParseDuration(getEnv("CLOCK_INTERVAL", "1s")); err != nil {
		return nil, fmt.Errorf("invalid CLOCK_INTERVAL: %w", err)
	}

	if config.SMTPPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	if config.SMSPerSecond, err = strconv.ParseFloat(getEnv("SMS_RATE_PER_SECOND", "5"), 64); err != nil {
		return nil, fmt.Errorf("invalid SMS_RATE_PER_SECOND: %w", err)
	}
	if config.QRSize, err = strconv.Atoi(getEnv("QR_SIZE", "256")); err != nil {
		return nil, fmt.Errorf("invalid QR_SIZE: %w", err)
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SMTPEnabled reports whether an SMTP server is configured
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFromEmail != ""
}

// SMSEnabled reports whether an SMS gateway is configured
func (c *Config) SMSEnabled() bool {
	return c.SMSGatewayURL != ""
}

func seconds(key, defaultValue string) (time.Duration, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Engine groups the knobs the booking engine receives at construction.
type Engine struct {
	OfferTTL         time.Duration `envconfig:"OFFER_TTL" default:"30m"`
	MaxSlots         int           `envconfig:"MAX_SLOTS" default:"24"`
	LookaheadDays    int           `envconfig:"LOOKAHEAD_DAYS" default:"14"`
	IterationCeiling int           `envconfig:"ITERATION_CEILING" default:"300"`
}

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`

	Engine Engine

	SendgridAPIKey    string `envconfig:"SENDGRID_API_KEY"`
	SendgridFromEmail string `envconfig:"SENDGRID_FROM_EMAIL"`
	SendgridFromName  string `envconfig:"SENDGRID_FROM_NAME" default:"Agendalo"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `envconfig:"TWILIO_FROM_NUMBER"`
}

// Load populates Config from the environment. godotenv is expected to have
// loaded any .env file before this runs.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

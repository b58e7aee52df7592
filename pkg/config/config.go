package config

import (
	"time"
)

type DB struct {
	Url string `envconfig:"URL"`
	// MigrateOnStart applies the embedded SQL migrations before serving.
	MigrateOnStart bool `envconfig:"MIGRATE_ON_START" default:"true"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
	// UserClaim names the claim holding the authenticated user id.
	UserClaim string `envconfig:"USER_CLAIM" default:"user_id"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:""`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[budgee]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Ledger tunes projection and the daily job.
type Ledger struct {
	HorizonMonths        int    `envconfig:"HORIZON_MONTHS" default:"12"`
	MinMonths            int    `envconfig:"MIN_MONTHS" default:"3"`
	InstallmentMinMonths int    `envconfig:"INSTALLMENT_MIN_MONTHS" default:"1"`
	Timezone             string `envconfig:"TIMEZONE" default:"Europe/Paris"`
	UpcomingDefaultLimit int    `envconfig:"UPCOMING_LIMIT" default:"5"`
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (l *Ledger) Location() *time.Location {
	if l == nil || l.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Notifier selects where run summaries are published.
type Notifier struct {
	Driver           string   `envconfig:"DRIVER" default:"memory"`
	Stream           string   `envconfig:"STREAM" default:"budgee:notifications"`
	Group            string   `envconfig:"GROUP" default:"mailer"`
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX" default:"budgee"`
}

// Journal selects where batch jobs record their last run date.
type Journal struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
	Notifier  *Notifier  `envconfig:"NOTIFIER"`
	Journal   *Journal   `envconfig:"JOURNAL"`
}

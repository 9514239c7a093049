package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is everything the reconciler reads from the environment.
type Config struct {
	DB       DBConfig
	Redis    RedisConfig
	PubSub   PubSubConfig
	Matching MatchingConfig
	Risk     RiskConfig
	LogLevel string `validate:"oneof=trace debug info warn warning error fatal panic"`
}

type DBConfig struct {
	User            string
	Password        string
	Host            string `validate:"required"`
	Port            string
	Name            string `validate:"required"`
	MaxOpenConns    int    `validate:"gte=0"`
	MaxIdleConns    int    `validate:"gte=0"`
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Address    string
	RunLockTTL time.Duration `validate:"gt=0"`
}

type PubSubConfig struct {
	ProjectID       string `validate:"required_with=Topic"`
	Topic           string
	CredentialsJSON string
}

type MatchingConfig struct {
	Tolerance decimal.Decimal `validate:"positive_decimal"`
}

type RiskConfig struct {
	StaleAfterDays       int `validate:"gte=0"`
	UnconfirmedAfterDays int `validate:"gte=0"`
	OverdueGraceDays     int `validate:"gte=0"`
	Limit                int `validate:"gte=0"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var env envReader
	cfg := &Config{
		DB: DBConfig{
			User:            os.Getenv("DB_USER"),
			Password:        os.Getenv("DB_PASSWORD"),
			Host:            stringFromEnv("DB_HOST", "127.0.0.1"),
			Port:            stringFromEnv("DB_PORT", "3306"),
			Name:            stringFromEnv("DB_NAME", "reconciliation"),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: time.Duration(env.integer("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
			ConnMaxIdleTime: time.Duration(env.integer("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second,
		},
		Redis: RedisConfig{
			Address:    os.Getenv("REDIS_ADDRESS"),
			RunLockTTL: time.Duration(env.integer("RUN_LOCK_TTL_SECONDS", 60)) * time.Second,
		},
		PubSub: PubSubConfig{
			ProjectID:       pubSubProjectID(),
			Topic:           os.Getenv("PUBSUB_TOPIC"),
			CredentialsJSON: os.Getenv("PUBSUB_CREDENTIALS_JSON"),
		},
		Matching: MatchingConfig{Tolerance: env.amount("MATCH_TOLERANCE", "0.01")},
		Risk: RiskConfig{
			StaleAfterDays:       env.integer("RISK_STALE_AFTER_DAYS", 14),
			UnconfirmedAfterDays: env.integer("RISK_UNCONFIRMED_AFTER_DAYS", 3),
			OverdueGraceDays:     env.integer("RISK_OVERDUE_GRACE_DAYS", 0),
			Limit:                env.integer("RISK_REPORT_LIMIT", 20),
		},
		LogLevel: strings.ToLower(stringFromEnv("LOG_LEVEL", "info")),
	}
	if err := env.err(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	_ = v.RegisterValidation("positive_decimal", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// DSN builds the MySQL data source name. A host under /cloudsql/ is the
// Cloud SQL unix socket.
func (c DBConfig) DSN() string {
	network := "tcp"
	address := fmt.Sprintf("%s:%s", c.Host, c.Port)
	if strings.HasPrefix(c.Host, "/cloudsql/") {
		network = "unix"
		address = c.Host
	}
	return fmt.Sprintf("%s:%s@%s(%s)/%s?parseTime=true&loc=UTC",
		c.User,
		c.Password,
		network,
		address,
		c.Name,
	)
}

func pubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	return os.Getenv("GOOGLE_CLOUD_PROJECT")
}

func stringFromEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envReader parses typed settings and keeps every parse failure so they
// are reported together.
type envReader struct {
	errs []string
}

func (r *envReader) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (r *envReader) amount(key, def string) decimal.Decimal {
	v := stringFromEnv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: %q is not a decimal", key, v))
		return decimal.Decimal{}
	}
	return d
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(r.errs, "; "))
}

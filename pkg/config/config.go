package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	Flags     FlagsConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Email     EmailConfig
	Chat      ChatConfig
	Carrier   CarrierConfig
	Outbox    OutboxConfig
	Reconcile ReconcileConfig
	Eventing  EventingConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PALLETWORKS_APP_ENV" required:"true"`
	Port         string `envconfig:"PALLETWORKS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PALLETWORKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PALLETWORKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PALLETWORKS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PALLETWORKS_DB_DSN"`
	Driver string `envconfig:"PALLETWORKS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PALLETWORKS_DB_HOST"`
	LegacyPort     int    `envconfig:"PALLETWORKS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PALLETWORKS_DB_USER"`
	LegacyPassword string `envconfig:"PALLETWORKS_DB_PASSWORD"`
	LegacyName     string `envconfig:"PALLETWORKS_DB_NAME"`
	LegacySSLMode  string `envconfig:"PALLETWORKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PALLETWORKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PALLETWORKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PALLETWORKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PALLETWORKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PALLETWORKS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PALLETWORKS_REDIS_ADDR"`
	Password     string        `envconfig:"PALLETWORKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"PALLETWORKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PALLETWORKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PALLETWORKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PALLETWORKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PALLETWORKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PALLETWORKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FlagsConfig struct {
	AutoMigrate bool `envconfig:"PALLETWORKS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PALLETWORKS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PALLETWORKS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PALLETWORKS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"PALLETWORKS_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationSubscription string `envconfig:"PALLETWORKS_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type EmailConfig struct {
	APIKey      string        `envconfig:"PALLETWORKS_EMAIL_API_KEY"`
	BaseURL     string        `envconfig:"PALLETWORKS_EMAIL_BASE_URL" default:"https://api.sendgrid.com"`
	DefaultFrom string        `envconfig:"PALLETWORKS_EMAIL_FROM" default:"orders@palletworks.com"`
	Timeout     time.Duration `envconfig:"PALLETWORKS_EMAIL_TIMEOUT" default:"10s"`
}

type ChatConfig struct {
	BaseURL string        `envconfig:"PALLETWORKS_CHAT_BASE_URL"`
	Timeout time.Duration `envconfig:"PALLETWORKS_CHAT_TIMEOUT" default:"10s"`
}

type CarrierConfig struct {
	BaseURL string        `envconfig:"PALLETWORKS_CARRIER_BASE_URL"`
	APIKey  string        `envconfig:"PALLETWORKS_CARRIER_API_KEY"`
	Timeout time.Duration `envconfig:"PALLETWORKS_CARRIER_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PALLETWORKS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PALLETWORKS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PALLETWORKS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PALLETWORKS_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

// ReconcileConfig tunes the order reconciliation pipeline.
type ReconcileConfig struct {
	// ForcedCustomers maps a merchant id to a fixed customer account id.
	// Events for that merchant skip identity resolution and are attributed
	// to the mapped account. Format: "merchantID=customerID,merchantID=customerID".
	ForcedCustomers string `envconfig:"PALLETWORKS_RECONCILE_FORCED_CUSTOMERS"`

	PlatformFeeBps int           `envconfig:"PALLETWORKS_RECONCILE_PLATFORM_FEE_BPS" default:"250"`
	StageTimeout   time.Duration `envconfig:"PALLETWORKS_RECONCILE_STAGE_TIMEOUT" default:"10s"`
}

// ForcedCustomerOverrides parses the configured merchant->customer pairs.
// Malformed entries are skipped rather than failing startup.
func (r ReconcileConfig) ForcedCustomerOverrides() map[string]string {
	overrides := map[string]string{}
	for _, pair := range strings.Split(r.ForcedCustomers, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		merchantID := strings.TrimSpace(parts[0])
		customerID := strings.TrimSpace(parts[1])
		if merchantID == "" || customerID == "" {
			continue
		}
		overrides[merchantID] = customerID
	}
	return overrides
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

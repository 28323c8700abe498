package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverMemory   = "memory"
)

// Mail drivers
const (
	MailDriverLog      = "log"
	MailDriverPostmark = "postmark"
)

type Config struct {
	Server       ServerConfig       `env:",prefix=SERVER_"`
	Store        StoreConfig        `env:",prefix=STORE_"`
	Postgres     PostgresConfig     `env:",prefix=POSTGRES_"`
	Mongo        MongoConfig        `env:",prefix=MONGO_"`
	Redis        RedisConfig        `env:",prefix=REDIS_"`
	JWT          JWTConfig          `env:",prefix=JWT_"`
	Verification VerificationConfig `env:",prefix=VERIFICATION_"`
	Session      SessionConfig      `env:",prefix=SESSION_"`
	Security     SecurityConfig     `env:",prefix="`
	Mail         MailConfig         `env:",prefix=MAIL_"`
	CORS         CORSConfig         `env:",prefix=CORS_"`
	Env          string             `env:"ENV,default=development"`
	LogLevel     string             `env:"LOG_LEVEL,default=info"`
	Version      string             `env:"SERVICE_VERSION,default=dev"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// honoured. Empty means the socket address is the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

type StoreConfig struct {
	Driver string `env:"DRIVER,default=postgres"`
}

type PostgresConfig struct {
	Host            string   `env:"HOST,default=localhost"`
	Port            string   `env:"PORT,default=5432"`
	User            string   `env:"USER,default=identity_service"`
	Password        string   `env:"PASSWORD,default=identity_service_password"`
	DBName          string   `env:"DB,default=identity_service_db"`
	SSLMode         string   `env:"SSLMODE,default=disable"`
	MaxOpenConns    int      `env:"MAX_OPEN_CONNS,default=25"`
	MaxIdleConns    int      `env:"MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime Duration `env:"CONN_MAX_LIFETIME,default=5m"`
	MigrateOnBoot   bool     `env:"MIGRATE_ON_BOOT,default=true"`
}

type MongoConfig struct {
	URI            string   `env:"URI,default=mongodb://localhost:27017"`
	Database       string   `env:"DATABASE,default=identity_service"`
	ConnectTimeout Duration `env:"CONNECT_TIMEOUT,default=10s"`
	MaxPoolSize    uint64   `env:"MAX_POOL_SIZE,default=100"`
}

type RedisConfig struct {
	Host         string   `env:"HOST,default=localhost"`
	Port         string   `env:"PORT,default=6379"`
	Password     string   `env:"PASSWORD,default="`
	DB           int      `env:"DB,default=0"`
	PoolSize     int      `env:"POOL_SIZE,default=10"`
	DialTimeout  Duration `env:"DIAL_TIMEOUT,default=5s"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=3s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=3s"`
}

type JWTConfig struct {
	Secret            string   `env:"SECRET,required"`
	AccessTokenExpiry Duration `env:"ACCESS_TOKEN_EXPIRY,default=5m"`
}

// VerificationConfig controls one-time codes and password reset links.
// Secret must differ from the access token secret.
type VerificationConfig struct {
	Secret          string   `env:"SECRET,required"`
	OTPDigits       int      `env:"OTP_DIGITS,default=6"`
	OTPExpiry       Duration `env:"OTP_EXPIRY,default=15m"`
	OTPMaxAttempts  int      `env:"OTP_MAX_ATTEMPTS,default=5"`
	ResetLinkExpiry Duration `env:"RESET_LINK_EXPIRY,default=30m"`
}

// SessionConfig holds the two refresh token cleanup windows
type SessionConfig struct {
	CleanupSameDeviceAfter Duration `env:"CLEANUP_SAME_DEVICE_AFTER,default=30.44d"`
	CleanupAnyDeviceAfter  Duration `env:"CLEANUP_ANY_DEVICE_AFTER,default=365.2425d"`
}

type SecurityConfig struct {
	BCryptCost        int      `env:"BCRYPT_COST,default=12"`
	PasswordMinLength int      `env:"PASSWORD_MIN_LENGTH,default=6"`
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type MailConfig struct {
	Driver               string   `env:"DRIVER,default=log"`
	SenderEmail          string   `env:"SENDER_EMAIL,default=no-reply@localhost"`
	SupportEmail         string   `env:"SUPPORT_EMAIL,default=support@localhost"`
	PostmarkServerToken  string   `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string   `env:"POSTMARK_ACCOUNT_TOKEN"`
	BreakerMaxFailures   uint32   `env:"BREAKER_MAX_FAILURES,default=5"`
	BreakerOpenTimeout   Duration `env:"BREAKER_OPEN_TIMEOUT,default=30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns PostgreSQL connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// Address returns Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks invariants that struct tags cannot express
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLength)
	}
	if len(c.Verification.Secret) < minSecretLength {
		return fmt.Errorf("VERIFICATION_SECRET must be at least %d characters long", minSecretLength)
	}
	if c.JWT.Secret == c.Verification.Secret {
		return fmt.Errorf("VERIFICATION_SECRET must differ from JWT_SECRET")
	}
	if c.Verification.OTPMaxAttempts < 1 {
		return fmt.Errorf("VERIFICATION_OTP_MAX_ATTEMPTS must be positive")
	}

	switch c.Store.Driver {
	case StoreDriverPostgres, StoreDriverMongo, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.Mail.Driver {
	case MailDriverLog, MailDriverPostmark:
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.Mail.Driver)
	}

	if c.Verification.OTPDigits < 4 || c.Verification.OTPDigits > 10 {
		return fmt.Errorf("VERIFICATION_OTP_DIGITS must be between 4 and 10")
	}
	if c.Security.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be positive")
	}
	if c.Session.CleanupSameDeviceAfter.Duration <= 0 || c.Session.CleanupAnyDeviceAfter.Duration <= 0 {
		return fmt.Errorf("session cleanup windows must be positive")
	}

	return nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds the settings of the contacts service. All values are taken from the environment,
// optionally pre-populated from a .env file in the working directory.
//
// Usage example on the command line:
//
//	> PORT=8080 DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 JWT_SECRET=s3cr3t go run ./cmd/service
type Config struct {
	Port      int    `env:"PORT"       envDefault:"8080"`
	APIPrefix string `env:"API_PREFIX" envDefault:"/api"`

	// Storage selects the contact storage: "mysql" or "memory".
	Storage string `env:"STORAGE" envDefault:"mysql"`

	DBHost string `env:"DBHOST" envDefault:"localhost:3306"`
	DBUser string `env:"DBUSER"`
	DBPwd  string `env:"DBPWD"`
	DBName string `env:"DBNAME" envDefault:"test"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"24h"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RateLimitTimes  int           `env:"RATE_LIMIT_TIMES"  envDefault:"2"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"5s"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`

	// TrustedProxies lists the addresses or CIDR ranges whose X-Forwarded-For header is believed.
	// Empty means the client address is always the peer of the TCP connection.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	GinMode    string `env:"GIN_MODE"    envDefault:"debug"`
	GinLogging string `env:"GIN_LOGGING" envDefault:"on"`
	LogMode    string `env:"LOG_MODE"    envDefault:"development"`
}

// Load reads the .env file if there is one and parses the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the Config from the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if c.Storage != "mysql" && c.Storage != "memory" {
		return fmt.Errorf("invalid STORAGE %q", c.Storage)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.RateLimitTimes < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_TIMES %d", c.RateLimitTimes)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("invalid RATE_LIMIT_WINDOW %s", c.RateLimitWindow)
	}
	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry %q", proxy)
			}
		}
	}
	return nil
}

// DSN returns the MySQL data source name. Times are parsed into time.Time values.
func (c Config) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPwd
	mc.Net = "tcp"
	mc.Addr = c.DBHost
	mc.DBName = c.DBName
	mc.ParseTime = true
	return mc.FormatDSN()
}

// RequestLogging reports whether HTTP requests should be logged.
func (c Config) RequestLogging() bool {
	return c.GinLogging != "off" && c.GinLogging != "OFF"
}

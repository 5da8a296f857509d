package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App    AppConfig
	Server ServerConfig
	MySQL  MySQLConfig
	Redis  RedisConfig
	AMQP   AMQPConfig
	Order  OrderConfig
}

type AppConfig struct {
	Name string
	Env  string
}

type ServerConfig struct {
	Host string
	Port int
}

type MySQLConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	PoolSize int
}

// AMQPConfig is optional; an empty URL disables the kitchen order feed.
type AMQPConfig struct {
	URL   string
	Queue string
}

type OrderConfig struct {
	// AdvanceRate is the fraction of the total charged upfront for
	// advance payments. A business rule, not a protocol constant.
	AdvanceRate decimal.Decimal
	// LockWaitTimeout bounds how long the transaction may wait on a
	// contended product row before failing as retryable.
	LockWaitTimeout time.Duration
	QueueSize       int
	WorkerCount     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "resto-ordering"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnvAsInt("HTTP_PORT", 4000),
		},
		MySQL: MySQLConfig{
			Host:            getEnv("MYSQL_HOST", "localhost"),
			Port:            getEnvAsInt("MYSQL_PORT", 3306),
			User:            getEnv("MYSQL_USER", "root"),
			Password:        getEnv("MYSQL_PASSWORD", "root"),
			DBName:          getEnv("MYSQL_DB", "restaurant"),
			MaxOpenConns:    getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvAsDuration("MYSQL_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 100),
		},
		AMQP: AMQPConfig{
			URL:   getEnv("AMQP_URL", ""),
			Queue: getEnv("AMQP_ORDER_QUEUE", "kitchen_orders"),
		},
		Order: OrderConfig{
			AdvanceRate:     getEnvAsDecimal("ORDER_ADVANCE_RATE", "0.30"),
			LockWaitTimeout: getEnvAsDuration("ORDER_LOCK_WAIT_TIMEOUT", 5*time.Second),
			QueueSize:       getEnvAsInt("ORDER_QUEUE_SIZE", 10000),
			WorkerCount:     getEnvAsInt("ORDER_WORKER_COUNT", 10),
		},
	}

	return cfg, cfg.validate()
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (m MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		m.User, m.Password, m.Host, m.Port, m.DBName)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("HTTP_PORT is invalid")
	}
	if c.MySQL.Host == "" || c.MySQL.User == "" || c.MySQL.DBName == "" {
		return fmt.Errorf("mysql config is incomplete")
	}
	if c.Order.AdvanceRate.LessThanOrEqual(decimal.Zero) || c.Order.AdvanceRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("ORDER_ADVANCE_RATE must be in (0, 1]")
	}
	if c.Order.WorkerCount <= 0 || c.Order.QueueSize <= 0 {
		return fmt.Errorf("order worker pool config is invalid")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvAsDecimal(key, defaultVal string) decimal.Decimal {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultVal)
}

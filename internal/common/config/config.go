// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Store         StoreConfig             `mapstructure:"store"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Documents     DocumentsConfig         `mapstructure:"documents"`
	Agents        AgentsConfig            `mapstructure:"agents"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type HTTPConfig struct {
	Address        string   `mapstructure:"address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RequestTimeout int      `mapstructure:"request_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig selects the tabular store backing the applicant tables.
type StoreConfig struct {
	Driver       string   `mapstructure:"driver"` // xlsx | postgres | memory
	XLSXPath     string   `mapstructure:"xlsx_path"`
	Tables       []string `mapstructure:"tables"` // load order; later tables win on duplicate names
	DefaultTable string   `mapstructure:"default_table"`
}

type CacheConfig struct {
	Driver    string `mapstructure:"driver"` // redis | memory | none
	TTL       int    `mapstructure:"ttl"`    // seconds; 0 disables caching
	KeyPrefix string `mapstructure:"key_prefix"`
}

// TTLDuration returns the cache TTL as a time.Duration.
func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

type DocumentsConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Bucket         string   `mapstructure:"bucket"`
	Region         string   `mapstructure:"region"`
	Endpoint       string   `mapstructure:"endpoint"`
	Prefix         string   `mapstructure:"prefix"`
	RootFolder     string   `mapstructure:"root_folder"`
	Types          []string `mapstructure:"types"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	LinkTTL        int      `mapstructure:"link_ttl"` // seconds
}

// AgentsConfig is the specialty table used to suggest a default agent.
type AgentsConfig struct {
	Default     string           `mapstructure:"default"`
	Specialties []AgentSpecialty `mapstructure:"specialties"`
}

type AgentSpecialty struct {
	Agent    string   `mapstructure:"agent"`
	Keywords []string `mapstructure:"keywords"`
	Email    string   `mapstructure:"email"`
	Phone    string   `mapstructure:"phone"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for the alert digest.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	// Agent name -> contact, used when the agent table has no contact.
	Recipients map[string]Recipient `mapstructure:"recipients"`
}

type Recipient struct {
	Email string `mapstructure:"email"`
	Phone string `mapstructure:"phone"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

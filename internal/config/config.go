package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the entire application configuration
type Config struct {
	Env         string         `json:"env"`
	Port        int            `json:"port"`
	AppName     string         `json:"app_name"`
	AdminAPIKey string         `json:"admin_api_key"` // empty disables auth on admin routes
	TVMaze      TVMazeConfig   `json:"tvmaze"`
	MongoDB     MongoDBConfig  `json:"mongodb"`
	Redis       RedisConfig    `json:"redis"`
	RabbitMQ    RabbitMQConfig `json:"rabbitmq"`
	AWS         AWSConfig      `json:"aws"`
	Import      ImportConfig   `json:"import"`
	Logging     LoggingConfig  `json:"logging"`
	CORS        CORSConfig     `json:"cors"`
}

type RedisConfig struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age,omitempty"` // seconds that preflight requests can be cached
}

// TVMazeConfig contains catalog API settings
type TVMazeConfig struct {
	BaseURL           string `json:"base_url"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	TimeoutSeconds    int    `json:"timeout_seconds"`
	Cache             bool   `json:"cache"`
	DefaultCacheTTL   int    `json:"default_cache_ttl"` // seconds
}

// MongoDBConfig contains MongoDB connection details
type MongoDBConfig struct {
	URI      string `json:"uri"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       string `json:"db"`
}

// RabbitMQConfig contains broker connection details and queue names
type RabbitMQConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	VHost            string `json:"vhost"`
	PrefetchCount    int    `json:"prefetch_count"`
	IndexQueue       string `json:"index_queue"`
	DetailsQueue     string `json:"details_queue"`
	DeadLetterSuffix string `json:"dead_letter_suffix"`
	GeneralQueue     string `json:"general_queue"`
}

// AWSConfig contains the blob storage used for the raw page archive
type AWSConfig struct {
	Enabled    bool   `json:"enabled"`
	AccessKey  string `json:"access_key"`
	SecretKey  string `json:"secret_key"`
	Bucket     string `json:"bucket"`
	Region     string `json:"region"`
	PagePrefix string `json:"page_prefix"`
}

// ImportConfig tunes the bulk import pipeline
type ImportConfig struct {
	FullPageThreshold    int `json:"full_page_threshold"`
	MaxRetryAttempts     int `json:"max_retry_attempts"`
	BaseDelaySeconds     int `json:"base_delay_seconds"`
	FreshnessMaxAgeDays  int `json:"freshness_max_age_days"`
	UpdatesIntervalHours int `json:"updates_interval_hours"`
}

// LoggingConfig contains logging-related configurations
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// LoadConfig reads configuration from the specified file path
func LoadConfig(filePath string) (*Config, error) {
	configData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(configData, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.ApplyEnv()
	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills every unset value the pipeline depends on
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.AppName == "" {
		c.AppName = "show-service"
	}

	if c.TVMaze.BaseURL == "" {
		c.TVMaze.BaseURL = "https://api.tvmaze.com"
	}
	if c.TVMaze.RequestsPerMinute <= 1 {
		c.TVMaze.RequestsPerMinute = 120
	}
	if c.TVMaze.TimeoutSeconds == 0 {
		c.TVMaze.TimeoutSeconds = 30
	}
	if c.TVMaze.DefaultCacheTTL == 0 {
		c.TVMaze.DefaultCacheTTL = 3600
	}

	if c.MongoDB.DB == "" {
		c.MongoDB.DB = "shows"
	}

	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "shows"
	}

	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.IndexQueue == "" {
		c.RabbitMQ.IndexQueue = "index-queue"
	}
	if c.RabbitMQ.DetailsQueue == "" {
		c.RabbitMQ.DetailsQueue = "shows-details-queue"
	}
	if c.RabbitMQ.GeneralQueue == "" {
		c.RabbitMQ.GeneralQueue = "general"
	}
	if c.RabbitMQ.DeadLetterSuffix == "" {
		c.RabbitMQ.DeadLetterSuffix = "-deadletter"
	}

	if c.AWS.PagePrefix == "" {
		c.AWS.PagePrefix = "shows-pages/"
	}

	if c.Import.FullPageThreshold <= 0 {
		c.Import.FullPageThreshold = 200
	}
	if c.Import.MaxRetryAttempts <= 0 {
		c.Import.MaxRetryAttempts = 3
	}
	if c.Import.BaseDelaySeconds <= 0 {
		c.Import.BaseDelaySeconds = 2
	}
	if c.Import.FreshnessMaxAgeDays <= 0 {
		c.Import.FreshnessMaxAgeDays = 7
	}
	if c.Import.UpdatesIntervalHours <= 0 {
		c.Import.UpdatesIntervalHours = 24
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// ApplyEnv lets secrets from the environment (or a .env file) override the file
func (c *Config) ApplyEnv() {
	setString(&c.MongoDB.URI, "MONGODB_URI")
	setString(&c.MongoDB.Password, "MONGODB_PASSWORD")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&c.AWS.AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.AWS.SecretKey, "AWS_SECRET_ACCESS_KEY")
	setString(&c.AdminAPIKey, "ADMIN_API_KEY")

	if port, ok := os.LookupEnv("PORT"); ok {
		if p, err := strconv.Atoi(port); err == nil {
			c.Port = p
		}
	}
}

// BaseDelay is the first backoff step of the retry policy
func (c ImportConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds) * time.Second
}

// DeadLetterQueue returns the dead-letter queue name for a primary queue name
func (c RabbitMQConfig) DeadLetterQueue(queueName string) string {
	return queueName + c.DeadLetterSuffix
}

func setString(target *string, key string) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		*target = value
	}
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds invoice record store configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	UseSSL         bool   `mapstructure:"use_ssl"`
	InvoiceBucket  string `mapstructure:"invoice_bucket"`
	TemplateBucket string `mapstructure:"template_bucket"`
	TemplateKey    string `mapstructure:"template_key"`
}

// GatewayConfig holds the upload gateway configuration
type GatewayConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotifyConfig holds notification bus configuration
type NotifyConfig struct {
	TopicARN string `mapstructure:"topic_arn"`
	Region   string `mapstructure:"region"`
}

// OracleConfig holds CRM oracle configuration
type OracleConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// WhatsAppConfig holds WhatsApp webhook configuration
type WhatsAppConfig struct {
	VerifyToken   string        `mapstructure:"verify_token"`
	AccessToken   string        `mapstructure:"access_token"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	DedupTTL      time.Duration `mapstructure:"dedup_ttl"`
}

// RendererConfig holds document rendering configuration
type RendererConfig struct {
	WkhtmltopdfPath string `mapstructure:"wkhtmltopdf_path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/invoices.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	viper.SetDefault("storage.use_ssl", true)
	viper.SetDefault("storage.invoice_bucket", "generated-invoice-pdf")
	viper.SetDefault("storage.template_bucket", "static-invoice-template")
	viper.SetDefault("storage.template_key", "invoice_template.html")

	viper.SetDefault("gateway.timeout", 30*time.Second)

	viper.SetDefault("notify.region", "ap-southeast-5")

	viper.SetDefault("oracle.model", "gpt-4")
	viper.SetDefault("oracle.temperature", 0.2)
	viper.SetDefault("oracle.max_tokens", 2000)
	viper.SetDefault("oracle.timeout", 60*time.Second)

	viper.SetDefault("whatsapp.dedup_ttl", 10*time.Minute)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	viper.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	viper.BindEnv("gateway.endpoint", "UPLOAD_GATEWAY_ENDPOINT")
	viper.BindEnv("notify.topic_arn", "SNS_TOPIC_ARN")
	viper.BindEnv("oracle.api_key", "OPENAI_API_KEY")
	viper.BindEnv("whatsapp.verify_token", "WHATSAPP_VERIFY_TOKEN")
	viper.BindEnv("whatsapp.access_token", "WHATSAPP_ACCESS_TOKEN")
	viper.BindEnv("whatsapp.phone_number_id", "WHATSAPP_PHONE_NUMBER_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required")
	}
	if c.Storage.AccessKey == "" {
		return fmt.Errorf("storage.access_key is required")
	}
	if c.Storage.SecretKey == "" {
		return fmt.Errorf("storage.secret_key is required")
	}
	if c.Notify.TopicARN == "" {
		return fmt.Errorf("notify.topic_arn is required")
	}
	if c.Oracle.APIKey == "" {
		return fmt.Errorf("oracle.api_key is required")
	}
	return nil
}

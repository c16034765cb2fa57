package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"lakehouse-gateway/internal/storage"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Security SecurityConfig `mapstructure:"security"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	Host string `mapstructure:"host"`
}

// CatalogConfig configures the metadata database. Backend "memory" runs
// the catalog without MySQL.
type CatalogConfig struct {
	Backend  string `mapstructure:"backend"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSL      string `mapstructure:"ssl"`
}

// StorageConfig holds the managed warehouse root plus per-backend
// credentials for remote table locations.
type StorageConfig struct {
	WarehouseRoot string `mapstructure:"warehouse_root"`

	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`

	MinIOEndpoint  string `mapstructure:"minio_endpoint"`
	MinIOAccessKey string `mapstructure:"minio_access_key"`
	MinIOSecretKey string `mapstructure:"minio_secret_key"`
	MinIOUseSSL    bool   `mapstructure:"minio_use_ssl"`

	AzureAccountName string `mapstructure:"azure_account_name"`
	AzureAccountKey  string `mapstructure:"azure_account_key"`
	AzureSASToken    string `mapstructure:"azure_sas_token"`
	AzureEndpoint    string `mapstructure:"azure_endpoint"`

	HDFSUser string `mapstructure:"hdfs_user"`
}

// Credentials converts the storage section to the form the store
// factory consumes.
func (s StorageConfig) Credentials() storage.Credentials {
	return storage.Credentials{
		S3Region:         s.S3Region,
		S3AccessKey:      s.S3AccessKey,
		S3SecretKey:      s.S3SecretKey,
		S3Endpoint:       s.S3Endpoint,
		MinIOEndpoint:    s.MinIOEndpoint,
		MinIOAccessKey:   s.MinIOAccessKey,
		MinIOSecretKey:   s.MinIOSecretKey,
		MinIOUseSSL:      s.MinIOUseSSL,
		AzureAccountName: s.AzureAccountName,
		AzureAccountKey:  s.AzureAccountKey,
		AzureSASToken:    s.AzureSASToken,
		AzureEndpoint:    s.AzureEndpoint,
		HDFSUser:         s.HDFSUser,
	}
}

type SecurityConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	JWTExpiration      time.Duration `mapstructure:"jwt_expiration"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst"`
	EnableAuth         bool          `mapstructure:"enable_auth"`
	EnableRateLimit    bool          `mapstructure:"enable_rate_limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults and environment
			fmt.Println("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.host", "0.0.0.0")

	// Catalog defaults
	viper.SetDefault("catalog.backend", "mysql")
	viper.SetDefault("catalog.host", "localhost")
	viper.SetDefault("catalog.port", "3306")
	viper.SetDefault("catalog.database", "lakehouse_catalog")
	viper.SetDefault("catalog.username", "lakehouse_user")
	viper.SetDefault("catalog.ssl", "false")

	// Storage defaults
	viper.SetDefault("storage.warehouse_root", "./warehouse")
	viper.SetDefault("storage.s3_region", "us-east-1")
	viper.SetDefault("storage.hdfs_user", "lakehouse")

	// Security defaults
	viper.SetDefault("security.jwt_secret", "your-secret-key")
	viper.SetDefault("security.jwt_expiration", "24h")
	viper.SetDefault("security.rate_limit_per_minute", 60)
	viper.SetDefault("security.rate_limit_burst", 10)
	viper.SetDefault("security.enable_auth", false)
	viper.SetDefault("security.enable_rate_limit", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

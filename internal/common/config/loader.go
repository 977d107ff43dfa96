// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like APIS_LLM_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile looks for a .env next to the binary, in parent dirs and at the module root.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Fprintf(os.Stderr, "loaded .env from: %s\n", path)
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from the variable names used by the deployment scripts.
func overrideEmptyConfig(cfg *Config) {
	if cfg.APIs.LLM.APIKey == "" {
		if val := os.Getenv("MISTRAL_API_KEY"); val != "" {
			cfg.APIs.LLM.APIKey = val
		}
	}
	if cfg.APIs.Google.APIKey == "" {
		if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
			cfg.APIs.Google.APIKey = val
		}
	}
	if cfg.Server.APIKey == "" {
		if val := os.Getenv("ASSISTANT_API_KEY"); val != "" {
			cfg.Server.APIKey = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Notifications.AWS.SNS.TopicARN == "" {
		if val := os.Getenv("ALERT_TOPIC_ARN"); val != "" {
			cfg.Notifications.AWS.SNS.TopicARN = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "versailles-assistant"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 330000
	}
	if cfg.Server.ModelName == "" {
		cfg.Server.ModelName = "versailles-assistant"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	if cfg.APIs.LLM.BaseURL == "" {
		cfg.APIs.LLM.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.APIs.LLM.Model == "" {
		cfg.APIs.LLM.Model = "mistral-large-latest"
	}
	if cfg.APIs.LLM.Timeout == 0 {
		cfg.APIs.LLM.Timeout = 60000
	}
	if cfg.APIs.LLM.Temperature == 0 {
		cfg.APIs.LLM.Temperature = 0.7
	}
	if cfg.APIs.LLM.MaxTokens == 0 {
		cfg.APIs.LLM.MaxTokens = 1000
	}
	if cfg.APIs.LLM.EvaluateTimeout == 0 {
		cfg.APIs.LLM.EvaluateTimeout = 300000
	}

	if cfg.APIs.Google.PlacesURL == "" {
		cfg.APIs.Google.PlacesURL = "https://places.googleapis.com"
	}
	if cfg.APIs.Google.RoutesURL == "" {
		cfg.APIs.Google.RoutesURL = "https://routes.googleapis.com"
	}
	if cfg.APIs.Google.WeatherURL == "" {
		cfg.APIs.Google.WeatherURL = "https://weather.googleapis.com"
	}
	if cfg.APIs.Google.Latitude == 0 && cfg.APIs.Google.Longitude == 0 {
		cfg.APIs.Google.Latitude = 48.8049
		cfg.APIs.Google.Longitude = 2.1204
	}
	if cfg.APIs.Google.Timeout == 0 {
		cfg.APIs.Google.Timeout = 10000
	}
	if cfg.APIs.Google.CacheSize == 0 {
		cfg.APIs.Google.CacheSize = 256
	}
	if cfg.APIs.Google.CacheTTL == 0 {
		cfg.APIs.Google.CacheTTL = 3600
	}

	if cfg.APIs.Schedule.BaseURL == "" {
		cfg.APIs.Schedule.BaseURL = "https://www.chateauversailles.fr"
	}
	if cfg.APIs.Schedule.Timeout == 0 {
		cfg.APIs.Schedule.Timeout = 10000
	}

	if cfg.Pipeline.KnowledgeIndex == "" {
		cfg.Pipeline.KnowledgeIndex = "versailles_kb"
	}
	if cfg.Pipeline.FAQTable == "" {
		cfg.Pipeline.FAQTable = "faq_entries"
	}
	if cfg.Pipeline.MaxResults == 0 {
		cfg.Pipeline.MaxResults = 5
	}
	if cfg.Pipeline.CacheTTL == 0 {
		cfg.Pipeline.CacheTTL = 900
	}
	if cfg.Pipeline.AlertConfidenceThreshold == 0 {
		cfg.Pipeline.AlertConfidenceThreshold = 0.3
	}

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1.0
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "eu-west-3"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if cfg.APIs.LLM.BaseURL == "" {
		return fmt.Errorf("apis.llm.base_url is required")
	}
	if cfg.APIs.LLM.Model == "" {
		return fmt.Errorf("apis.llm.model is required")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Database.Postgres.Host != "" && cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required when postgres is configured")
	}
	if cfg.Notifications.AWS.SNS.Enabled && cfg.Notifications.AWS.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.aws.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.AWS.SES.Enabled && cfg.Notifications.AWS.SES.FromEmail == "" {
		return fmt.Errorf("notifications.aws.ses.from_email is required when ses is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

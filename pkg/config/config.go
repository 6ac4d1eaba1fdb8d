// Package config loads the predictor configuration from config.yaml with
// PREDICTOR_* environment overrides, reading .env.local first so secrets
// stay out of the YAML file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEnvFile is loaded into the environment before config parsing.
const DefaultEnvFile = ".env.local"

// Config is the full application configuration.
type Config struct {
	Platform   PlatformConfig   `mapstructure:"platform"`
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Serving    ServingConfig    `mapstructure:"serving"`
	Training   TrainingConfig   `mapstructure:"training"`
}

// PlatformConfig identifies the remote serving platform. All fields are
// required unless the deployment type is local.
type PlatformConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Project string `mapstructure:"project"`
	Region  string `mapstructure:"region"`
}

// DeploymentConfig drives the orchestrator.
type DeploymentConfig struct {
	Type           string        `mapstructure:"type"`
	EndpointBase   string        `mapstructure:"endpoint_base"`
	DeploymentBase string        `mapstructure:"deployment_base"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// ServerConfig locates the deployment directory store.
type ServerConfig struct {
	Dir  string `mapstructure:"dir"`
	Keep int    `mapstructure:"keep"`
}

// RegistryConfig locates the model registry database.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// ServingConfig configures the local scoring server.
type ServingConfig struct {
	Addr string `mapstructure:"addr"`
}

// TrainingConfig configures data generation and training.
type TrainingConfig struct {
	Samples      int     `mapstructure:"samples"`
	Seed         int64   `mapstructure:"seed"`
	TestFraction float64 `mapstructure:"test_fraction"`
	LearningRate float64 `mapstructure:"learning_rate"`
	Epochs       int     `mapstructure:"epochs"`
	DataPath     string  `mapstructure:"data_path"`
	ModelPath    string  `mapstructure:"model_path"`
}

// TypeLocal deployments skip platform validation.
const TypeLocal = "local"

// Load reads config from the given YAML file, after loading envFile (if it
// exists) into the process environment. Environment variables prefixed
// PREDICTOR_ override file values, e.g. PREDICTOR_PLATFORM_API_KEY.
func Load(configFile, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("PREDICTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found, create it with your configuration: %w", configFile, err)
		}
		return nil, fmt.Errorf("reading %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configFile, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.type", "managed_endpoint")
	v.SetDefault("deployment.endpoint_base", "purchase-predictor")
	v.SetDefault("deployment.deployment_base", "purchase-predictor")
	v.SetDefault("deployment.max_attempts", 3)
	v.SetDefault("deployment.retry_delay", "5m")
	v.SetDefault("deployment.attempt_timeout", "20m")
	v.SetDefault("deployment.poll_interval", "10s")
	v.SetDefault("server.dir", "server")
	v.SetDefault("server.keep", 5)
	v.SetDefault("registry.path", "registry.db")
	v.SetDefault("serving.addr", ":5001")
	v.SetDefault("training.samples", 1000)
	v.SetDefault("training.seed", 42)
	v.SetDefault("training.test_fraction", 0.2)
	v.SetDefault("training.learning_rate", 0.1)
	v.SetDefault("training.epochs", 500)
	v.SetDefault("training.data_path", "data/purchases.csv")
	v.SetDefault("training.model_path", "models/model.json")
}

// Validate checks the configuration for a deployment run. Platform fields
// are required for remote deployment types; local deployments need none of
// them.
func (c *Config) Validate() error {
	if c.Deployment.MaxAttempts <= 0 {
		return fmt.Errorf("deployment.max_attempts must be positive, got %d", c.Deployment.MaxAttempts)
	}
	if c.Deployment.Type == TypeLocal {
		return nil
	}

	required := map[string]string{
		"platform.base_url": c.Platform.BaseURL,
		"platform.project":  c.Platform.Project,
		"platform.region":   c.Platform.Region,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("required platform configuration field %q is missing or empty", field)
		}
	}
	return nil
}

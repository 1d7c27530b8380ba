package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Alijeyrad/carevisit_backend/pkg/constants"
	"github.com/spf13/viper"
)

var GlobalConf *Config

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	setDefaults(v)

	// Allow env vars to override config values.
	// e.g. CAREVISIT_DATABASE_HOST overrides database.host
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the config file (optional in Docker environments)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
		if os.Getenv(constants.EnvPrefix+"_DATABASE_HOST") == "" && !v.GetBool("demo.enabled") {
			return nil, fmt.Errorf("config file not found in %q and no environment overrides set", configPath)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func MustReadConfig(path string) *Config {
	config, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}

	GlobalConf = config

	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("calendar.api_url", "http://localhost:8080")
	v.SetDefault("calendar.timezone", "Local")
	v.SetDefault("calendar.default_view", "week")
	v.SetDefault("calendar.request_timeout_seconds", 10)
	v.SetDefault("demo.reset_cron", "0 */6 * * *")
	v.SetDefault("cache.range_ttl_seconds", 300)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("observability.service_name", constants.ServiceName)
}

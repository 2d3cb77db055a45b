package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "IGAUTH"

type Config interface {
	EnvConfig
	FlowConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetCMSToken() string
	GetRequestTimeout() time.Duration
	GetLogLevel() string
	GetLogJSON() bool
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Flow
	Storage
}

// New builds the configuration from IGAUTH_* environment variables and, when
// configFile is not empty, from that file. Environment variables win.
func New(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config.New read %s: %w", configFile, err)
		}
	}

	src := source{v: v}
	return mainConfig{
		EnvVars: EnvVars{src},
		Flow:    Flow{src},
		Storage: Storage{src},
	}, nil
}

// source resolves keys against viper, falling back to the supplied defaults.
type source struct {
	v *viper.Viper
}

func (s source) key(name string) string {
	return strings.ToLower(name)
}

func (s source) getString(name, defaultValue string) string {
	if s.v == nil {
		return defaultValue
	}
	value := strings.TrimSpace(s.v.GetString(s.key(name)))
	if value == "" {
		return defaultValue
	}
	return value
}

func (s source) getDuration(name string, defaultValue time.Duration) time.Duration {
	if s.v == nil || !s.v.IsSet(s.key(name)) {
		return defaultValue
	}
	d := s.v.GetDuration(s.key(name))
	if d <= 0 {
		return defaultValue
	}
	return d
}

func (s source) getInt(name string, defaultValue int) int {
	if s.v == nil || !s.v.IsSet(s.key(name)) {
		return defaultValue
	}
	i := s.v.GetInt(s.key(name))
	if i <= 0 {
		return defaultValue
	}
	return i
}

func (s source) getBool(name string, defaultValue bool) bool {
	if s.v == nil || !s.v.IsSet(s.key(name)) {
		return defaultValue
	}
	return s.v.GetBool(s.key(name))
}

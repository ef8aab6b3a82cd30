// Package config handles loading and validating the echowise configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the echowise daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Locale     LocaleConfig     `mapstructure:"locale"`
	Device     DeviceConfig     `mapstructure:"device"`
	Speech     SpeechConfig     `mapstructure:"speech"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport. Utterances arrive on
// <topic_prefix>/<source>/utterance and replies go to <topic_prefix>/<source>/response.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// MatchingConfig controls intent classification.
type MatchingConfig struct {
	Mode string `mapstructure:"mode"` // "word" (default) or "substring"

	// Keywords adds phrases to existing rules, keyed by intent name
	// (e.g. "toggle_flashlight": ["lampe torche"]). Rule order is fixed.
	Keywords map[string][]string `mapstructure:"keywords"`
}

// LocaleConfig selects the response language.
type LocaleConfig struct {
	Default     string `mapstructure:"default"`      // BCP 47 tag, e.g. "en"
	StringsFile string `mapstructure:"strings_file"` // optional YAML merged over the built-in table
}

// DeviceConfig selects the capability adapter.
type DeviceConfig struct {
	Backend string           `mapstructure:"backend"` // "sim" or "mqtt"
	Sim     SimConfig        `mapstructure:"sim"`
	MQTT    DeviceMQTTConfig `mapstructure:"mqtt"`
}

// SimConfig describes the initial state of the simulated device.
type SimConfig struct {
	WifiEnabled      bool     `mapstructure:"wifi_enabled"`
	BluetoothEnabled bool     `mapstructure:"bluetooth_enabled"`
	HasWifi          bool     `mapstructure:"has_wifi"`
	HasBluetooth     bool     `mapstructure:"has_bluetooth"`
	HasFlashlight    bool     `mapstructure:"has_flashlight"`
	Granted          []string `mapstructure:"granted"`  // e.g. ["camera", "bluetooth_connect"]
	Handlers         []string `mapstructure:"handlers"` // installed apps: alarm, camera, settings
	BatteryLevel     int      `mapstructure:"battery_level"`
	BatteryScale     int      `mapstructure:"battery_scale"`
	TimeLayout       string   `mapstructure:"time_layout"` // Go time layout
	DateLayout       string   `mapstructure:"date_layout"`
}

// DeviceMQTTConfig configures the remote device adapter.
type DeviceMQTTConfig struct {
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	DeviceID    string        `mapstructure:"device_id"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SpeechConfig configures the optional Whisper-compatible transcriber used
// when a request carries audio instead of a transcript.
type SpeechConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"` // ISO-639-1 hint
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./echowise.yaml, ./configs/echowise.yaml, /etc/echowise/echowise.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("echowise")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/echowise")
	}

	// Environment variables: ECHOWISE_SERVER_HEALTH_PORT, ECHOWISE_DEVICE_BACKEND, etc.
	v.SetEnvPrefix("ECHOWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The config file is optional; env vars and defaults are sufficient.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${MQTT_PASSWORD}")
	cfg.Transports.MQTT.Password = resolveEnvRef(cfg.Transports.MQTT.Password)
	cfg.Device.MQTT.Password = resolveEnvRef(cfg.Device.MQTT.Password)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.client_id", "echowise")
	v.SetDefault("transports.mqtt.topic_prefix", "echowise")
	v.SetDefault("matching.mode", "word")
	v.SetDefault("locale.default", "en")
	v.SetDefault("device.backend", "sim")
	v.SetDefault("device.sim.has_wifi", true)
	v.SetDefault("device.sim.has_bluetooth", true)
	v.SetDefault("device.sim.has_flashlight", true)
	v.SetDefault("device.sim.granted", []string{})
	v.SetDefault("device.sim.handlers", []string{"alarm", "camera", "settings"})
	v.SetDefault("device.sim.battery_level", 80)
	v.SetDefault("device.sim.battery_scale", 100)
	v.SetDefault("device.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("device.mqtt.client_id", "echowise-device-port")
	v.SetDefault("device.mqtt.topic_prefix", "echowise/devices")
	v.SetDefault("device.mqtt.device_id", "phone")
	v.SetDefault("device.mqtt.timeout", "5s")
	v.SetDefault("speech.enabled", false)
	v.SetDefault("speech.endpoint", "http://localhost:8000/v1/audio/transcriptions")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Matching.Mode) {
	case "", "word", "substring":
	default:
		return fmt.Errorf("matching.mode: unknown mode %q", c.Matching.Mode)
	}
	switch c.Device.Backend {
	case "sim", "mqtt":
	default:
		return fmt.Errorf("device.backend: unknown backend %q", c.Device.Backend)
	}
	if strings.TrimSpace(c.Locale.Default) == "" {
		return fmt.Errorf("locale.default must not be empty")
	}
	if c.Device.Backend == "mqtt" && c.Device.MQTT.DeviceID == "" {
		return fmt.Errorf("device.mqtt.device_id must be set for the mqtt backend")
	}
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

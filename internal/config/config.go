// Package config loads controller and supervisor settings with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"irrigation_controller/internal/control"
	"irrigation_controller/internal/deploy"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/sensor"
	"irrigation_controller/internal/telemetry"
)

// EnvPrefix is prepended to every environment override, e.g.
// IRRIGATION_CONTROLLER_TICK_PERIOD=1s.
const EnvPrefix = "IRRIGATION"

// ErrFallbackNotDry is returned when the soil fallback would not trigger irrigation.
var ErrFallbackNotDry = deploy.ErrFallbackNotDry

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Controller ControllerConfig `mapstructure:"controller"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
}

type ControllerConfig struct {
	TickPeriod          time.Duration     `mapstructure:"tick_period"`
	ActivationThreshold int               `mapstructure:"activation_threshold"`
	OverrideDuration    time.Duration     `mapstructure:"override_duration"`
	RelayActiveLow      bool              `mapstructure:"relay_active_low"`
	Calibration         CalibrationConfig `mapstructure:"calibration"`
	Nutrients           NutrientsConfig   `mapstructure:"nutrients"`
	Simulator           SimulatorConfig   `mapstructure:"simulator"`
}

type CalibrationConfig struct {
	DryRaw      int    `mapstructure:"dry_raw"`
	WetRaw      int    `mapstructure:"wet_raw"`
	Polarity    string `mapstructure:"polarity"`
	GuardLow    int    `mapstructure:"guard_low"`
	GuardHigh   int    `mapstructure:"guard_high"`
	FallbackPct int    `mapstructure:"fallback_pct"`
}

type NutrientsConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	N        int     `mapstructure:"n"`
	P        int     `mapstructure:"p"`
	K        int     `mapstructure:"k"`
	Rainfall float64 `mapstructure:"rainfall"`
}

type SimulatorConfig struct {
	Seed         int64   `mapstructure:"seed"`
	InitialPct   int     `mapstructure:"initial_pct"`
	DryRatePct   float64 `mapstructure:"dry_rate_pct"`
	WetRatePct   float64 `mapstructure:"wet_rate_pct"`
	NoiseRaw     float64 `mapstructure:"noise_raw"`
	AmbientC     float64 `mapstructure:"ambient_c"`
	AmbientRH    float64 `mapstructure:"ambient_rh"`
	ThermalReady bool    `mapstructure:"thermal_ready"`
	SoilAttached bool    `mapstructure:"soil_attached"`
}

type SupervisorConfig struct {
	Port           string          `mapstructure:"port"`
	DeviceID       string          `mapstructure:"device_id"`
	Serial         SerialConfig    `mapstructure:"serial"`
	ControllerCmd  []string        `mapstructure:"controller_cmd"`
	CommandTimeout time.Duration   `mapstructure:"command_timeout"`
	StaleAfter     time.Duration   `mapstructure:"stale_after"`
	DB             DBConfig        `mapstructure:"db"`
	Auth           AuthConfig      `mapstructure:"auth"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	MQTT           MQTTConfig      `mapstructure:"mqtt"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
}

// SerialConfig selects the UART. An empty Port means the supervisor spawns
// ControllerCmd and talks to it over pipes instead.
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

type RateLimitConfig struct {
	PerSec float64 `mapstructure:"per_sec"`
	Burst  int     `mapstructure:"burst"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

func setDefaults(v *viper.Viper) {
	cal := sensor.DefaultCalibration()
	sim := sensor.DefaultSimulatorParams()
	nut := telemetry.DefaultNutrients()

	v.SetDefault("log_level", logger.InfoLevel)

	v.SetDefault("controller.tick_period", "5s")
	v.SetDefault("controller.activation_threshold", control.DefaultActivationThreshold)
	v.SetDefault("controller.override_duration", control.DefaultOverrideDuration.String())
	v.SetDefault("controller.relay_active_low", false)
	v.SetDefault("controller.calibration.dry_raw", cal.DryRaw)
	v.SetDefault("controller.calibration.wet_raw", cal.WetRaw)
	v.SetDefault("controller.calibration.polarity", string(cal.Polarity))
	v.SetDefault("controller.calibration.guard_low", cal.GuardLow)
	v.SetDefault("controller.calibration.guard_high", cal.GuardHigh)
	v.SetDefault("controller.calibration.fallback_pct", cal.FallbackPct)
	v.SetDefault("controller.nutrients.enabled", true)
	v.SetDefault("controller.nutrients.n", nut.N)
	v.SetDefault("controller.nutrients.p", nut.P)
	v.SetDefault("controller.nutrients.k", nut.K)
	v.SetDefault("controller.nutrients.rainfall", nut.Rainfall)
	v.SetDefault("controller.simulator.seed", 0)
	v.SetDefault("controller.simulator.initial_pct", sim.InitialPct)
	v.SetDefault("controller.simulator.dry_rate_pct", sim.DryRatePct)
	v.SetDefault("controller.simulator.wet_rate_pct", sim.WetRatePct)
	v.SetDefault("controller.simulator.noise_raw", sim.NoiseRaw)
	v.SetDefault("controller.simulator.ambient_c", sim.AmbientC)
	v.SetDefault("controller.simulator.ambient_rh", sim.AmbientRH)
	v.SetDefault("controller.simulator.thermal_ready", sim.ThermalReady)
	v.SetDefault("controller.simulator.soil_attached", sim.SoilAttached)

	v.SetDefault("supervisor.port", "8080")
	v.SetDefault("supervisor.device_id", "field-1")
	v.SetDefault("supervisor.serial.port", "")
	v.SetDefault("supervisor.serial.baud", 115200)
	v.SetDefault("supervisor.controller_cmd", []string{"./controller"})
	v.SetDefault("supervisor.command_timeout", "12s")
	v.SetDefault("supervisor.stale_after", "15s")
	v.SetDefault("supervisor.db.path", "irrigation.db")
	v.SetDefault("supervisor.auth.signing_key", "")
	v.SetDefault("supervisor.auth.token_ttl", "12h")
	v.SetDefault("supervisor.rate_limit.per_sec", 1.0)
	v.SetDefault("supervisor.rate_limit.burst", 3)
	v.SetDefault("supervisor.mqtt.enabled", false)
	v.SetDefault("supervisor.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("supervisor.mqtt.client_id", "irrigation-supervisor")
	v.SetDefault("supervisor.mqtt.topic", "irrigation/telemetry")
	v.SetDefault("supervisor.mqtt.username", "")
	v.SetDefault("supervisor.mqtt.password", "")
	v.SetDefault("supervisor.kafka.enabled", false)
	v.SetDefault("supervisor.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("supervisor.kafka.topic", "irrigation.telemetry")
}

// Load reads path (or configs/config.yml when path is empty), applies
// environment overrides and validates the result. A missing default config
// file is not an error; every key has a default.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the controller cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case logger.DebugLevel, logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel:
	default:
		return fmt.Errorf("log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	if err := c.Controller.Validate(); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	if err := c.Supervisor.Validate(c.Controller.TickPeriod); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

func (c ControllerConfig) Validate() error {
	return c.Settings().Validate()
}

// Settings returns the controller view shared with the firmware build.
func (c ControllerConfig) Settings() deploy.Settings {
	return deploy.Settings{
		Calibration: c.Calibration.Calibration(),
		Policy:      c.Policy(),
		Tick:        c.TickPeriod,
	}
}

// Validate checks supervisor settings. Commands are served at most one per
// controller tick, so the command timeout has to outlast a tick.
func (s SupervisorConfig) Validate(tick time.Duration) error {
	if s.Port == "" {
		return errors.New("port is required")
	}
	if s.Serial.Port == "" && len(s.ControllerCmd) == 0 {
		return errors.New("either serial.port or controller_cmd is required")
	}
	if s.Serial.Port != "" && s.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", s.Serial.Baud)
	}
	if s.CommandTimeout <= tick {
		return fmt.Errorf("command_timeout %s must exceed tick_period %s", s.CommandTimeout, tick)
	}
	if s.StaleAfter <= tick {
		return fmt.Errorf("stale_after %s must exceed tick_period %s", s.StaleAfter, tick)
	}
	if s.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", s.Auth.TokenTTL)
	}
	if s.RateLimit.PerSec <= 0 || s.RateLimit.Burst < 1 {
		return fmt.Errorf("rate_limit needs per_sec > 0 and burst >= 1, got %v/%d", s.RateLimit.PerSec, s.RateLimit.Burst)
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if s.Kafka.Enabled && len(s.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

func (c ControllerConfig) Policy() control.Policy {
	return control.Policy{
		ActivationThreshold: c.ActivationThreshold,
		OverrideDuration:    c.OverrideDuration,
	}
}

func (c CalibrationConfig) Calibration() sensor.Calibration {
	return sensor.Calibration{
		DryRaw:      c.DryRaw,
		WetRaw:      c.WetRaw,
		Polarity:    sensor.Polarity(c.Polarity),
		GuardLow:    c.GuardLow,
		GuardHigh:   c.GuardHigh,
		FallbackPct: c.FallbackPct,
	}
}

// Nutrients returns nil when the nutrient fields are disabled.
func (c NutrientsConfig) Nutrients() *telemetry.Nutrients {
	if !c.Enabled {
		return nil
	}
	return &telemetry.Nutrients{N: c.N, P: c.P, K: c.K, Rainfall: c.Rainfall}
}

func (c SimulatorConfig) Params() sensor.SimulatorParams {
	return sensor.SimulatorParams{
		InitialPct:   c.InitialPct,
		DryRatePct:   c.DryRatePct,
		WetRatePct:   c.WetRatePct,
		NoiseRaw:     c.NoiseRaw,
		AmbientC:     c.AmbientC,
		AmbientRH:    c.AmbientRH,
		ThermalReady: c.ThermalReady,
		SoilAttached: c.SoilAttached,
	}
}

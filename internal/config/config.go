// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Device() DeviceConfig
	Agent() AgentConfig
	Report() ReportConfig
	Run() RunConfig
	SetRunConfig(rc RunConfig)

	// Agent Setters
	SetAgentMaxSteps(int)

	// Device Setters
	SetDeviceSerial(string)

	// Report Setters
	SetReportFormats([]string)
	SetReportOutputDir(string)
}

// Config holds the entire application configuration.
// Sections are exported for viper's unmarshaler and read through the Interface getters.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	DeviceCfg DeviceConfig `mapstructure:"device" yaml:"device"`
	AgentCfg  AgentConfig  `mapstructure:"agent" yaml:"agent"`
	ReportCfg ReportConfig `mapstructure:"report" yaml:"report"`
	// RunCfg gets its marching orders from CLI arguments, not the config file.
	RunCfg RunConfig `mapstructure:"-" yaml:"-"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Device() DeviceConfig { return c.DeviceCfg }
func (c *Config) Agent() AgentConfig   { return c.AgentCfg }
func (c *Config) Report() ReportConfig { return c.ReportCfg }
func (c *Config) Run() RunConfig       { return c.RunCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetRunConfig(rc RunConfig) { c.RunCfg = rc }

func (c *Config) SetAgentMaxSteps(n int)      { c.AgentCfg.MaxSteps = n }
func (c *Config) SetDeviceSerial(s string)    { c.DeviceCfg.Serial = s }
func (c *Config) SetReportOutputDir(d string) { c.ReportCfg.OutputDir = d }
func (c *Config) SetReportFormats(f []string) {
	c.ReportCfg.Formats = append([]string(nil), f...)
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DeviceConfig controls how the device is reached over ADB.
type DeviceConfig struct {
	ADBPath string `mapstructure:"adb_path" yaml:"adb_path"`
	// Serial selects a device; empty means the first one reported by `adb devices`.
	Serial         string        `mapstructure:"serial" yaml:"serial"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	ScreenshotsDir string        `mapstructure:"screenshots_dir" yaml:"screenshots_dir"`
	// DumpPath is the on-device path uiautomator writes the hierarchy to.
	DumpPath      string        `mapstructure:"dump_path" yaml:"dump_path"`
	SwipeDuration time.Duration `mapstructure:"swipe_duration" yaml:"swipe_duration"`
}

// AgentConfig holds settings related to the agent loop and its oracle.
type AgentConfig struct {
	MaxSteps    int           `mapstructure:"max_steps" yaml:"max_steps"`
	SettleDelay time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	// HistoryLookback bounds the cross-screen trail shown to the oracle.
	HistoryLookback  int             `mapstructure:"history_lookback" yaml:"history_lookback"`
	VolatilePackages []string        `mapstructure:"volatile_packages" yaml:"volatile_packages"`
	Oracle           OracleConfig    `mapstructure:"oracle" yaml:"oracle"`
	LLM              LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
}

// OracleConfig bounds how the decision oracle is called.
type OracleConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
}

// ReportConfig selects the sinks that receive the finished run record.
type ReportConfig struct {
	Formats   []string       `mapstructure:"formats" yaml:"formats"`
	OutputDir string         `mapstructure:"output_dir" yaml:"output_dir"`
	Database  DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"-"`
}

// RunConfig holds settings populated from CLI arguments for a single run.
type RunConfig struct {
	Mission string
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// Report format names understood by the reporting package.
const (
	ReportFormatJSON     = "json"
	ReportFormatHTML     = "html"
	ReportFormatPostgres = "postgres"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider      LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"-"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP          float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK          int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "droidpilot")
	v.SetDefault("logger.log_file", "droidpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Device --
	v.SetDefault("device.adb_path", "adb")
	v.SetDefault("device.serial", "")
	v.SetDefault("device.command_timeout", "20s")
	v.SetDefault("device.screenshots_dir", "screenshots")
	v.SetDefault("device.dump_path", "/data/local/tmp/ui.xml")
	v.SetDefault("device.swipe_duration", "500ms")

	// -- Agent --
	v.SetDefault("agent.max_steps", 15)
	v.SetDefault("agent.settle_delay", "2s")
	v.SetDefault("agent.history_lookback", 10)
	v.SetDefault("agent.volatile_packages", []string{"com.android.systemui"})
	v.SetDefault("agent.oracle.max_attempts", 2)
	v.SetDefault("agent.oracle.request_timeout", "60s")
	v.SetDefault("agent.oracle.requests_per_minute", 30.0)
	v.SetDefault("agent.oracle.temperature", 0.2)

	// -- Agent LLM --
	v.SetDefault("agent.llm.default_fast_model", "gemini-flash")
	v.SetDefault("agent.llm.default_powerful_model", "gemini-pro")
	v.SetDefault("agent.llm.models", map[string]interface{}{
		"gemini-flash": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-flash",
			"api_timeout": "60s",
			"max_tokens":  2000,
		},
		"gemini-pro": map[string]interface{}{
			"provider":    string(ProviderGemini),
			"model":       "gemini-2.5-pro",
			"api_timeout": "90s",
			"max_tokens":  2000,
		},
	})

	// -- Report --
	v.SetDefault("report.formats", []string{ReportFormatJSON, ReportFormatHTML})
	v.SetDefault("report.output_dir", "reports")
}

// apiKeyEnvVars are consulted, in order, for models that have no key configured.
var apiKeyEnvVars = []string{"DROIDPILOT_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("report.database.url", "DROIDPILOT_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.AgentCfg.LLM.applyAPIKeyFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyAPIKeyFromEnv fills in missing API keys from the well-known env vars.
func (r *LLMRouterConfig) applyAPIKeyFromEnv() {
	var key string
	for _, name := range apiKeyEnvVars {
		if key = os.Getenv(name); key != "" {
			break
		}
	}
	if key == "" {
		return
	}
	for name, m := range r.Models {
		if m.APIKey == "" {
			m.APIKey = key
			r.Models[name] = m
		}
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.DeviceCfg.Validate(); err != nil {
		return fmt.Errorf("device configuration invalid: %w", err)
	}
	if err := c.AgentCfg.Validate(); err != nil {
		return fmt.Errorf("agent configuration invalid: %w", err)
	}
	if err := c.ReportCfg.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the device settings.
func (d *DeviceConfig) Validate() error {
	if d.ADBPath == "" {
		return fmt.Errorf("adb_path is required")
	}
	if d.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be a positive duration")
	}
	if d.DumpPath == "" {
		return fmt.Errorf("dump_path is required")
	}
	return nil
}

// Validate checks the agent loop settings.
func (a *AgentConfig) Validate() error {
	if a.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be a positive integer")
	}
	if a.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if a.HistoryLookback < 0 {
		return fmt.Errorf("history_lookback must not be negative")
	}
	if a.Oracle.MaxAttempts < 1 {
		return fmt.Errorf("oracle.max_attempts must be at least 1")
	}
	if a.Oracle.RequestsPerMinute < 0 {
		return fmt.Errorf("oracle.requests_per_minute must not be negative")
	}
	return nil
}

// Validate checks the report sink selection.
func (r *ReportConfig) Validate() error {
	for _, f := range r.Formats {
		switch strings.ToLower(f) {
		case ReportFormatJSON, ReportFormatHTML:
		case ReportFormatPostgres:
			if r.Database.URL == "" {
				return fmt.Errorf("format %q requires database.url (DROIDPILOT_DATABASE_URL)", f)
			}
		default:
			return fmt.Errorf("unsupported report format: %s", f)
		}
	}
	return nil
}

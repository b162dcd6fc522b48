package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/telewebsaver/engine/internal/common/configtypes"
	"github.com/telewebsaver/engine/internal/common/yamlutil"
	"github.com/telewebsaver/engine/pkg/types"
)

const (
	// SafetyMargin is added to server.max_timeout so fasthttp does not drop
	// a connection while a render that is about to time out is still streaming.
	SafetyMargin = 10 * time.Second

	PoolSizeAuto = "auto"

	DefaultSearxNGURL = "http://localhost:8080"
)

var namespaceRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ServiceConfig is the snapshot service configuration file
type ServiceConfig struct {
	Server   ServerConfig              `yaml:"server"`
	Redis    configtypes.RedisConfig   `yaml:"redis"`
	Chrome   ChromeConfig              `yaml:"chrome"`
	Snapshot SnapshotConfig            `yaml:"snapshot"`
	Search   SearchConfig              `yaml:"search"`
	Security SecurityConfig            `yaml:"security"`
	Log      configtypes.LogConfig     `yaml:"log"`
	Metrics  configtypes.MetricsConfig `yaml:"metrics"`
}

type ServerConfig struct {
	ID         string         `yaml:"id"`
	Listen     string         `yaml:"listen"`
	MaxTimeout types.Duration `yaml:"max_timeout"` // hard limit for a single snapshot request
}

// CalculateServerTimeout returns the fasthttp read/write timeout: max_timeout + SafetyMargin
func (s *ServerConfig) CalculateServerTimeout() time.Duration {
	return s.MaxTimeout.ToDuration() + SafetyMargin
}

type ChromeConfig struct {
	PoolSize        string         `yaml:"pool_size"` // "auto" or a positive integer
	ExecPath        string         `yaml:"exec_path"`
	AutoDownload    bool           `yaml:"auto_download"`
	NoSandbox       bool           `yaml:"no_sandbox"`
	ShutdownTimeout types.Duration `yaml:"shutdown_timeout"`
}

// SnapshotConfig overrides renderer limits and waits. Zero values take the renderer defaults.
type SnapshotConfig struct {
	ViewportWidth      int            `yaml:"viewport_width"`
	ViewportHeight     int            `yaml:"viewport_height"`
	DeviceScale        float64        `yaml:"device_scale"`
	MinWidth           int            `yaml:"min_width"`
	MaxWidth           int            `yaml:"max_width"`
	MinHeight          int            `yaml:"min_height"`
	MaxHeight          int            `yaml:"max_height"`
	NavigationTimeout  types.Duration `yaml:"navigation_timeout"`
	ConsentSettle      types.Duration `yaml:"consent_settle"`
	NetworkIdleTimeout types.Duration `yaml:"network_idle_timeout"`
	FontsTimeout       types.Duration `yaml:"fonts_timeout"`
	StabilizeSettle    types.Duration `yaml:"stabilize_settle"`
	VisibleTimeout     types.Duration `yaml:"visible_timeout"`
	ScriptTimeout      types.Duration `yaml:"script_timeout"` // per consent step, title read and geometry read
}

type SearchConfig struct {
	SearxNGURL string         `yaml:"searxng_url"`
	Timeout    types.Duration `yaml:"timeout"`
	MaxResults int            `yaml:"max_results"`
	ResultTTL  types.Duration `yaml:"result_ttl"`
	Categories string         `yaml:"categories"`
}

type SecurityConfig struct {
	// SSRFProtection refuses targets that are, or resolve to, private and reserved addresses.
	// Redirects followed by the browser are not checked. Default: true.
	SSRFProtection *bool `yaml:"ssrf_protection,omitempty"`
}

// SSRFProtectionEnabled reports whether private and reserved targets are rejected
func (s SecurityConfig) SSRFProtectionEnabled() bool {
	return s.SSRFProtection == nil || *s.SSRFProtection
}

// LoadServiceConfig reads, defaults and validates a config file
func LoadServiceConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg ServiceConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default
func (cfg *ServiceConfig) ApplyDefaults() {
	if cfg.Server.MaxTimeout == 0 {
		cfg.Server.MaxTimeout = types.Duration(90 * time.Second)
	}

	if cfg.Chrome.PoolSize == "" {
		cfg.Chrome.PoolSize = PoolSizeAuto
	}
	if cfg.Chrome.ShutdownTimeout == 0 {
		cfg.Chrome.ShutdownTimeout = types.Duration(30 * time.Second)
	}

	cfg.Search.SearxNGURL = strings.TrimRight(cfg.Search.SearxNGURL, "/")
	if cfg.Search.SearxNGURL == "" {
		cfg.Search.SearxNGURL = DefaultSearxNGURL
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = types.Duration(15 * time.Second)
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 5
	}
	if cfg.Search.ResultTTL == 0 {
		cfg.Search.ResultTTL = types.Duration(time.Hour)
	}
	if cfg.Search.Categories == "" {
		cfg.Search.Categories = "general"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	// Both outputs disabled means the section was omitted: log to console
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "telewebsaver"
	}
}

// Validate checks configuration validity
func (cfg *ServiceConfig) Validate() error {
	if cfg.Server.ID == "" {
		return fmt.Errorf("server.id is required")
	}
	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}
	if cfg.Server.MaxTimeout <= 0 {
		return fmt.Errorf("server.max_timeout must be positive")
	}

	if cfg.Chrome.PoolSize != PoolSizeAuto {
		size, err := strconv.Atoi(cfg.Chrome.PoolSize)
		if err != nil || size <= 0 {
			return fmt.Errorf("chrome.pool_size must be 'auto' or positive integer")
		}
	}
	if cfg.Chrome.ShutdownTimeout <= 0 {
		return fmt.Errorf("chrome.shutdown_timeout must be positive")
	}

	if err := cfg.Snapshot.validate(); err != nil {
		return err
	}

	if !strings.HasPrefix(cfg.Search.SearxNGURL, "http://") && !strings.HasPrefix(cfg.Search.SearxNGURL, "https://") {
		return fmt.Errorf("search.searxng_url must be an http(s) URL, got %q", cfg.Search.SearxNGURL)
	}
	if cfg.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be positive")
	}
	if cfg.Search.MaxResults < 1 {
		return fmt.Errorf("search.max_results must be at least 1")
	}
	if cfg.Search.ResultTTL <= 0 {
		return fmt.Errorf("search.result_ttl must be positive")
	}

	if err := validateLog(&cfg.Log); err != nil {
		return err
	}

	return validateMetrics(&cfg.Metrics, cfg.Server.Listen)
}

func (s *SnapshotConfig) validate() error {
	ints := []struct {
		name  string
		value int
	}{
		{"viewport_width", s.ViewportWidth},
		{"viewport_height", s.ViewportHeight},
		{"min_width", s.MinWidth},
		{"max_width", s.MaxWidth},
		{"min_height", s.MinHeight},
		{"max_height", s.MaxHeight},
	}
	for _, v := range ints {
		if v.value < 0 {
			return fmt.Errorf("snapshot.%s must be >= 0, got %d", v.name, v.value)
		}
	}

	if s.DeviceScale < 0 {
		return fmt.Errorf("snapshot.device_scale must be >= 0")
	}
	if s.MinWidth > 0 && s.MaxWidth > 0 && s.MinWidth > s.MaxWidth {
		return fmt.Errorf("snapshot.min_width (%d) exceeds snapshot.max_width (%d)", s.MinWidth, s.MaxWidth)
	}
	if s.MinHeight > 0 && s.MaxHeight > 0 && s.MinHeight > s.MaxHeight {
		return fmt.Errorf("snapshot.min_height (%d) exceeds snapshot.max_height (%d)", s.MinHeight, s.MaxHeight)
	}

	durations := []struct {
		name  string
		value types.Duration
	}{
		{"navigation_timeout", s.NavigationTimeout},
		{"consent_settle", s.ConsentSettle},
		{"network_idle_timeout", s.NetworkIdleTimeout},
		{"fonts_timeout", s.FontsTimeout},
		{"stabilize_settle", s.StabilizeSettle},
		{"visible_timeout", s.VisibleTimeout},
		{"script_timeout", s.ScriptTimeout},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("snapshot.%s must not be negative", d.name)
		}
	}

	return nil
}

func validateLog(log *configtypes.LogConfig) error {
	if !configtypes.ValidLogLevels[log.Level] {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, error, dpanic, panic, or fatal)", log.Level)
	}

	if log.Console.Level != "" && !configtypes.ValidLogLevels[log.Console.Level] {
		return fmt.Errorf("invalid log.console.level: %s", log.Console.Level)
	}
	if log.Console.Enabled && log.Console.Format != configtypes.LogFormatJSON && log.Console.Format != configtypes.LogFormatConsole {
		return fmt.Errorf("invalid log.console.format: %s (must be json or console)", log.Console.Format)
	}

	if !log.File.Enabled {
		return nil
	}
	if log.File.Path == "" {
		return fmt.Errorf("log.file.path must be specified when file logging is enabled")
	}
	if log.File.Level != "" && !configtypes.ValidLogLevels[log.File.Level] {
		return fmt.Errorf("invalid log.file.level: %s", log.File.Level)
	}
	if log.File.Format != configtypes.LogFormatJSON && log.File.Format != configtypes.LogFormatText {
		return fmt.Errorf("invalid log.file.format: %s (must be json or text)", log.File.Format)
	}

	rot := log.File.Rotation
	if rot.MaxSize < 0 || rot.MaxAge < 0 || rot.MaxBackups < 0 {
		return fmt.Errorf("log.file.rotation values must be >= 0")
	}

	return nil
}

func validateMetrics(m *configtypes.MetricsConfig, serverListen string) error {
	if m.Enabled {
		if m.Listen == "" {
			return fmt.Errorf("metrics.listen is required when metrics enabled")
		}
		if err := configtypes.ValidateListenAddress(m.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen: %w", err)
		}
		if configtypes.SamePort(m.Listen, serverListen) {
			return fmt.Errorf("metrics.listen must use a different port than server.listen")
		}
	}

	if !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("invalid metrics.path: %s (must start with /)", m.Path)
	}
	if !namespaceRe.MatchString(m.Namespace) {
		return fmt.Errorf("invalid metrics.namespace: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", m.Namespace)
	}

	return nil
}

// GetConfigPath resolves the config file path
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}

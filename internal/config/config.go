package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "config.toml"

// ErrInvalidConfig reports missing, malformed or inconsistent configuration.
var ErrInvalidConfig = errors.New("configuration error")

// Mode selects how the viewer reaches its target group or page.
type Mode string

const (
	ModeByURL    Mode = "by_url"
	ModeBySearch Mode = "by_search"
)

// Config holds the entire application configuration.
type Config struct {
	Logger      LoggerConfig       `mapstructure:"logger"`
	Browser     BrowserConfig      `mapstructure:"browser"`
	Session     SessionConfig      `mapstructure:"session"`
	Site        SiteConfig         `mapstructure:"site"`
	Timing      TimingConfig       `mapstructure:"timing"`
	Credentials CredentialsConfig  `mapstructure:"credentials"`
	Default     string             `mapstructure:"default"`
	Profiles    map[string]Profile `mapstructure:"configs"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level"`
	Format      string      `mapstructure:"format"`
	AddSource   bool        `mapstructure:"add_source"`
	ServiceName string      `mapstructure:"service_name"`
	LogFile     string      `mapstructure:"log_file"`
	MaxSize     int         `mapstructure:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups"`
	MaxAge      int         `mapstructure:"max_age"`
	Compress    bool        `mapstructure:"compress"`
	Colors      ColorConfig `mapstructure:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug"`
	Info   string `mapstructure:"info"`
	Warn   string `mapstructure:"warn"`
	Error  string `mapstructure:"error"`
	DPanic string `mapstructure:"dpanic"`
	Panic  string `mapstructure:"panic"`
	Fatal  string `mapstructure:"fatal"`
}

// BrowserConfig holds settings for the Chrome instance.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"`
	ExecPath          string        `mapstructure:"exec_path"`
	UserDataDir       string        `mapstructure:"user_data_dir"`
	Args              []string      `mapstructure:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout"`
}

// SessionConfig locates the persisted cookie set.
type SessionConfig struct {
	CookieFile string `mapstructure:"cookie_file"`
}

// SiteConfig describes the markup of the site being filtered. These values
// track the site's UI and change when it does.
type SiteConfig struct {
	HomeURL           string `mapstructure:"home_url"`
	SearchPlaceholder string `mapstructure:"search_placeholder"`
	ShowMoreLabel     string `mapstructure:"show_more_label"`
}

// TimingConfig holds the settle delays between steps.
type TimingConfig struct {
	HomeSettle       time.Duration `mapstructure:"home_settle"`
	AddressSettle    time.Duration `mapstructure:"address_settle"`
	SearchSettle     time.Duration `mapstructure:"search_settle"`
	ResultSettle     time.Duration `mapstructure:"result_settle"`
	LoginSettle      time.Duration `mapstructure:"login_settle"`
	PostSubmitSettle time.Duration `mapstructure:"post_submit_settle"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
}

// CredentialsConfig is populated from the EMAIL and PASSWORD environment
// variables only. It is never written anywhere.
type CredentialsConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Profile is one named viewing configuration.
type Profile struct {
	Mode           Mode     `mapstructure:"mode"`
	URL            string   `mapstructure:"url"`
	SearchKey      string   `mapstructure:"search_key"`
	FilterKeywords []string `mapstructure:"filter_keywords"`
}

// Target returns the address or search key the profile's mode uses.
func (p Profile) Target() string {
	if p.Mode == ModeByURL {
		return p.URL
	}
	return p.SearchKey
}

// Validate checks the profile for a known mode and the field that mode needs.
func (p Profile) Validate() error {
	switch p.Mode {
	case "":
		return fmt.Errorf("missing 'mode'")
	case ModeByURL:
		if p.URL == "" {
			return fmt.Errorf("missing 'url' required for mode '%s'", p.Mode)
		}
	case ModeBySearch:
		if p.SearchKey == "" {
			return fmt.Errorf("missing 'search_key' required for mode '%s'", p.Mode)
		}
	default:
		return fmt.Errorf("invalid mode '%s'. Valid modes: [%s %s]", p.Mode, ModeByURL, ModeBySearch)
	}
	for i, kw := range p.FilterKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("filter_keywords[%d] is empty", i)
		}
	}
	return nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
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
	v.SetDefault("logger.service_name", "feedfilter")
	v.SetDefault("logger.log_file", "")
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

	// -- Browser --
	// The filtered page is the product, so the window is shown by default.
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.args", []string{"disable-notifications"})
	v.SetDefault("browser.navigation_timeout", "90s")
	v.SetDefault("browser.action_timeout", "30s")

	// -- Session --
	v.SetDefault("session.cookie_file", "tmp/cookies.json")

	// -- Site --
	v.SetDefault("site.home_url", "https://www.facebook.com")
	v.SetDefault("site.search_placeholder", "搜尋 Facebook")
	v.SetDefault("site.show_more_label", "查看更多")

	// -- Timing --
	v.SetDefault("timing.home_settle", "5s")
	v.SetDefault("timing.address_settle", "5s")
	v.SetDefault("timing.search_settle", "2s")
	v.SetDefault("timing.result_settle", "2s")
	// The login form rejects submissions made right after the fields are filled.
	v.SetDefault("timing.login_settle", "10s")
	v.SetDefault("timing.post_submit_settle", "10s")
	v.SetDefault("timing.poll_interval", "2s")

	v.SetDefault("default", "")
}

// Load reads the TOML file at path (config.toml in the working directory when
// empty), layers environment variables over it and validates the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	if path == "" {
		path = DefaultConfigFile
	}
	resolved, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not resolve config path '%s': %v", ErrInvalidConfig, path, err)
	}
	v.SetConfigFile(resolved)
	v.SetConfigType("toml")

	v.SetEnvPrefix("FEEDFILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: configuration file not found: %s", ErrInvalidConfig, resolved)
		}
		return nil, fmt.Errorf("%w: error parsing config file %s: %v", ErrInvalidConfig, resolved, err)
	}

	return NewConfigFromViper(v)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials come from the plain EMAIL and PASSWORD variables.
	_ = v.BindEnv("credentials.email", "EMAIL")
	_ = v.BindEnv("credentials.password", "PASSWORD")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling config: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("%w: no configurations found in the config file", ErrInvalidConfig)
	}
	if c.Default != "" {
		if _, ok := c.Profiles[strings.ToLower(c.Default)]; !ok {
			return fmt.Errorf("%w: default configuration '%s' not found", ErrInvalidConfig, c.Default)
		}
	}
	for _, name := range c.ProfileNames() {
		if err := c.Profiles[name].Validate(); err != nil {
			return fmt.Errorf("%w: configuration '%s' is invalid: %v", ErrInvalidConfig, name, err)
		}
	}

	u, err := url.Parse(c.Site.HomeURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: site.home_url must be an absolute http(s) URL, got '%s'", ErrInvalidConfig, c.Site.HomeURL)
	}

	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Browser.NavigationTimeout < 0 || c.Browser.ActionTimeout < 0 {
		return fmt.Errorf("%w: browser timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Validate checks that no delay is negative.
func (t TimingConfig) Validate() error {
	delays := map[string]time.Duration{
		"home_settle":        t.HomeSettle,
		"address_settle":     t.AddressSettle,
		"search_settle":      t.SearchSettle,
		"result_settle":      t.ResultSettle,
		"login_settle":       t.LoginSettle,
		"post_submit_settle": t.PostSubmitSettle,
		"poll_interval":      t.PollInterval,
	}
	for key, d := range delays {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative", key)
		}
	}
	return nil
}

// ProfileNames returns the configured profile names in sorted order.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultProfile returns the name of the profile used when none is requested:
// the configured default, or the first name in sorted order.
func (c *Config) DefaultProfile() string {
	if c.Default != "" {
		return strings.ToLower(c.Default)
	}
	if names := c.ProfileNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Profile returns the named profile, or the default one when name is empty.
// Names are matched case-insensitively.
func (c *Config) Profile(name string) (string, Profile, error) {
	if name == "" {
		name = c.DefaultProfile()
	}
	key := strings.ToLower(name)
	p, ok := c.Profiles[key]
	if !ok {
		return "", Profile{}, fmt.Errorf("%w: configuration '%s' not found. Available configs: %v",
			ErrInvalidConfig, name, c.ProfileNames())
	}
	return key, p, nil
}

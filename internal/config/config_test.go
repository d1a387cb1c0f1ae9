package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
default = "taichung"

[timing]
poll_interval = "500ms"

[configs.taichung]
mode = "by_search"
search_key = "台中租屋"
filter_keywords = ["售價", "3房"]

[configs.shalu]
mode = "by_url"
url = "https://example.test/groups/191628104570229/"
filter_keywords = ["沙鹿", "西屯"]

[configs.everything]
mode = "by_url"
url = "https://example.test/groups/1/"
`

// writeConfig drops content into a config file inside a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "feedfilter", cfg.Logger.ServiceName)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, []string{"disable-notifications"}, cfg.Browser.Args)
	assert.Equal(t, 90*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, "tmp/cookies.json", cfg.Session.CookieFile)
	assert.Equal(t, "https://www.facebook.com", cfg.Site.HomeURL)
	assert.Equal(t, "搜尋 Facebook", cfg.Site.SearchPlaceholder)
	assert.Equal(t, "查看更多", cfg.Site.ShowMoreLabel)
	assert.Equal(t, 10*time.Second, cfg.Timing.LoginSettle)
	assert.Equal(t, 10*time.Second, cfg.Timing.PostSubmitSettle)
	assert.Equal(t, 5*time.Second, cfg.Timing.HomeSettle)
	assert.Equal(t, 2*time.Second, cfg.Timing.PollInterval)
	assert.Empty(t, cfg.Profiles)
}

// -- Loading Tests --

func TestLoad(t *testing.T) {
	t.Run("reads profiles from toml", func(t *testing.T) {
		cfg, err := Load(viper.New(), writeConfig(t, sampleTOML))
		require.NoError(t, err)

		assert.Equal(t, []string{"everything", "shalu", "taichung"}, cfg.ProfileNames())
		assert.Equal(t, "taichung", cfg.DefaultProfile())
		assert.Equal(t, 500*time.Millisecond, cfg.Timing.PollInterval)
		assert.Equal(t, 5*time.Second, cfg.Timing.AddressSettle, "untouched keys keep their defaults")

		name, p, err := cfg.Profile("")
		require.NoError(t, err)
		assert.Equal(t, "taichung", name)
		assert.Equal(t, ModeBySearch, p.Mode)
		assert.Equal(t, "台中租屋", p.Target())
		assert.Equal(t, []string{"售價", "3房"}, p.FilterKeywords)

		_, p, err = cfg.Profile("Shalu")
		require.NoError(t, err)
		assert.Equal(t, ModeByURL, p.Mode)
		assert.Equal(t, "https://example.test/groups/191628104570229/", p.Target())

		_, p, err = cfg.Profile("everything")
		require.NoError(t, err)
		assert.Empty(t, p.FilterKeywords, "filter keywords default to empty")
	})

	t.Run("unknown profile", func(t *testing.T) {
		cfg, err := Load(viper.New(), writeConfig(t, sampleTOML))
		require.NoError(t, err)

		_, _, err = cfg.Profile("missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "configuration 'missing' not found")
	})

	t.Run("first profile is the default when none is set", func(t *testing.T) {
		cfg, err := Load(viper.New(), writeConfig(t, `
[configs.zeta]
mode = "by_url"
url = "https://example.test/z"

[configs.alpha]
mode = "by_url"
url = "https://example.test/a"
`))
		require.NoError(t, err)
		assert.Equal(t, "alpha", cfg.DefaultProfile())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "configuration file not found")
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := Load(viper.New(), writeConfig(t, "[configs.broken\nmode = "))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
		assert.Contains(t, err.Error(), "error parsing config file")
	})

	t.Run("credentials come from the environment", func(t *testing.T) {
		t.Setenv("EMAIL", "someone@example.test")
		t.Setenv("PASSWORD", "hunter2")

		cfg, err := Load(viper.New(), writeConfig(t, sampleTOML))
		require.NoError(t, err)
		assert.Equal(t, "someone@example.test", cfg.Credentials.Email)
		assert.Equal(t, "hunter2", cfg.Credentials.Password)
	})

	t.Run("prefixed environment overrides the file", func(t *testing.T) {
		t.Setenv("FEEDFILTER_BROWSER_HEADLESS", "true")

		cfg, err := Load(viper.New(), writeConfig(t, sampleTOML))
		require.NoError(t, err)
		assert.True(t, cfg.Browser.Headless)
	})
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cases := map[string]struct {
		toml    string
		message string
	}{
		"no profiles": {
			toml:    `default = ""`,
			message: "no configurations found",
		},
		"unknown default": {
			toml:    "default = \"ghost\"\n[configs.a]\nmode = \"by_url\"\nurl = \"https://example.test\"\n",
			message: "default configuration 'ghost' not found",
		},
		"missing mode": {
			toml:    "[configs.a]\nurl = \"https://example.test\"\n",
			message: "missing 'mode'",
		},
		"invalid mode": {
			toml:    "[configs.a]\nmode = \"by_magic\"\n",
			message: "invalid mode 'by_magic'",
		},
		"by_url without url": {
			toml:    "[configs.a]\nmode = \"by_url\"\nsearch_key = \"x\"\n",
			message: "missing 'url' required for mode 'by_url'",
		},
		"by_search without search_key": {
			toml:    "[configs.a]\nmode = \"by_search\"\nurl = \"https://example.test\"\n",
			message: "missing 'search_key' required for mode 'by_search'",
		},
		"empty keyword": {
			toml:    "[configs.a]\nmode = \"by_search\"\nsearch_key = \"x\"\nfilter_keywords = [\"ok\", \" \"]\n",
			message: "filter_keywords[1] is empty",
		},
		"relative home url": {
			toml:    "[site]\nhome_url = \"/home\"\n[configs.a]\nmode = \"by_search\"\nsearch_key = \"x\"\n",
			message: "site.home_url must be an absolute http(s) URL",
		},
		"negative delay": {
			toml:    "[timing]\npoll_interval = \"-1s\"\n[configs.a]\nmode = \"by_search\"\nsearch_key = \"x\"\n",
			message: "timing.poll_interval must not be negative",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tc.toml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestProfileValidate(t *testing.T) {
	valid := Profile{Mode: ModeBySearch, SearchKey: "台中租屋", FilterKeywords: []string{"售價"}}
	assert.NoError(t, valid.Validate())

	byURL := Profile{Mode: ModeByURL, URL: "https://example.test/groups/1/"}
	assert.NoError(t, byURL.Validate())
	assert.Equal(t, "https://example.test/groups/1/", byURL.Target())
}

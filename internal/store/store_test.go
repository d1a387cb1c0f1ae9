package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/feedfilter/api/schemas"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleCookies() []schemas.Cookie {
	return []schemas.Cookie{
		{Name: "c_user", Value: "100004", Domain: ".example.test", Path: "/", Expiry: int64Ptr(1893456000), HTTPOnly: false, Secure: true, SameSite: schemas.CookieSameSiteNone},
		{Name: "xs", Value: "31%3Aabc", Domain: ".example.test", Path: "/", Expiry: int64Ptr(1893456000), HTTPOnly: true, Secure: true, SameSite: schemas.CookieSameSiteNone},
		{Name: "presence", Value: "EDvF3", Domain: ".example.test", Path: "/", HTTPOnly: false, Secure: true},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "tmp", "cookies.json"))
	require.NoError(t, err)
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	original := sampleCookies()

	require.NoError(t, s.Save(original))

	loaded, found, err := s.Load()
	require.NoError(t, err)
	require.True(t, found)

	sortByName := cmpopts.SortSlices(func(a, b schemas.Cookie) bool { return a.Name < b.Name })
	if diff := cmp.Diff(original, loaded, sortByName); diff != "" {
		t.Errorf("cookie set changed across save/load (-want +got):\n%s", diff)
	}
}

func TestStoreLoad(t *testing.T) {
	t.Run("absent file is not an error", func(t *testing.T) {
		s := newTestStore(t)
		cookies, found, err := s.Load()
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, cookies)
	})

	corrupt := map[string]string{
		"truncated json":   `[{"name": "c_user", "value": `,
		"object not list":  `{"name": "c_user"}`,
		"null document":    `null`,
		"unnamed cookie":   `[{"value": "x", "domain": ".example.test"}]`,
		"plain text":       "session=abc",
		"wrong field type": `[{"name": "c_user", "value": 42}]`,
	}
	for name, content := range corrupt {
		t.Run("corrupt "+name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))

			cookies, found, err := s.Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSessionData)
			assert.False(t, found)
			assert.Nil(t, cookies)
		})
	}

	t.Run("reads files written by webdriver clients", func(t *testing.T) {
		s := newTestStore(t)
		content := `[
    {
        "domain": ".example.test",
        "expiry": 1893456000,
        "httpOnly": true,
        "name": "xs",
        "path": "/",
        "sameSite": "None",
        "secure": true,
        "value": "31%3Aabc"
    }
]`
		require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
		require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o600))

		cookies, found, err := s.Load()
		require.NoError(t, err)
		require.True(t, found)
		require.Len(t, cookies, 1)
		assert.Equal(t, "xs", cookies[0].Name)
		require.NotNil(t, cookies[0].Expiry)
		assert.Equal(t, int64(1893456000), *cookies[0].Expiry)
		assert.Equal(t, schemas.CookieSameSiteNone, cookies[0].SameSite)
	})
}

func TestStoreSave(t *testing.T) {
	t.Run("creates parent directories and overwrites", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.Save(sampleCookies()))
		require.NoError(t, s.Save(sampleCookies()[:1]))

		cookies, found, err := s.Load()
		require.NoError(t, err)
		require.True(t, found)
		assert.Len(t, cookies, 1)

		entries, err := os.ReadDir(filepath.Dir(s.Path()))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary files should not be left behind")
	})

	t.Run("writes stable indented json", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Save(sampleCookies()[:1]))

		data, err := os.ReadFile(s.Path())
		require.NoError(t, err)
		text := string(data)
		assert.True(t, strings.HasPrefix(text, "[\n    {\n        \"name\": \"c_user\""), text)
		assert.True(t, strings.HasSuffix(text, "]\n"))

		info, err := os.Stat(s.Path())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("nil set is written as an empty list", func(t *testing.T) {
		s := newTestStore(t)
		require.NoError(t, s.Save(nil))

		cookies, found, err := s.Load()
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, cookies)
	})
}

func TestNewDefaultsPath(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCookieFile, s.Path())
}

package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/xkilldash9x/feedfilter/api/schemas"
)

// DefaultCookieFile is where the session cookie set lives unless configured otherwise.
const DefaultCookieFile = "tmp/cookies.json"

// ErrSessionData reports a cookie file that exists but cannot be decoded.
var ErrSessionData = errors.New("corrupt session data")

// Store persists the cookie set of one authenticated browser context to a
// local JSON file.
type Store struct {
	path string
}

// New creates a store for the file at path. A leading ~ is expanded.
func New(path string) (*Store, error) {
	if path == "" {
		path = DefaultCookieFile
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve cookie file path '%s': %w", path, err)
	}
	return &Store{path: expanded}, nil
}

// Path returns the resolved location of the cookie file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted cookie set. found is false, with a nil error, when
// no file exists. A file that is not a list of named cookie records yields
// ErrSessionData.
func (s *Store) Load() (cookies []schemas.Cookie, found bool, err error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cookie file '%s': %w", s.path, err)
	}

	var raw []*schemas.Cookie
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %v", ErrSessionData, s.path, err)
	}
	if raw == nil {
		return nil, false, fmt.Errorf("%w: %s: expected a list of cookies", ErrSessionData, s.path)
	}

	cookies = make([]schemas.Cookie, 0, len(raw))
	for i, c := range raw {
		if c == nil || c.Name == "" {
			return nil, false, fmt.Errorf("%w: %s: cookie #%d has no name", ErrSessionData, s.path, i)
		}
		cookies = append(cookies, *c)
	}
	return cookies, true, nil
}

// Save writes the cookie set, replacing any previous file. Parent directories
// are created as needed.
func (s *Store) Save(cookies []schemas.Cookie) error {
	if cookies == nil {
		cookies = []schemas.Cookie{}
	}
	data, err := json.MarshalIndent(cookies, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".cookies-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary cookie file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set cookie file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close cookie file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace cookie file '%s': %w", s.path, err)
	}
	return nil
}

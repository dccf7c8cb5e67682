package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultBaseURL = "https://apis.deutschebahn.com/db-api-marketplace/apis/timetables/v1"
	DefaultTimeout = 10 * time.Second

	ClientIDEnv = "DB_CLIENT_ID"
	APIKeyEnv   = "DB_API_KEY"
	TimeoutEnv  = "DB_API_TIMEOUT"
)

// Settings holds the credentials and transport options used for every API call.
// It is a value type: once built it is never modified, only replaced.
type Settings struct {
	ClientID string
	APIKey   string
	Timeout  time.Duration
	BaseURL  string
}

type Option func(*Settings)

func WithTimeout(timeout time.Duration) Option {
	return func(s *Settings) {
		if timeout > 0 {
			s.Timeout = timeout
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(s *Settings) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			s.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func New(clientID, apiKey string, opts ...Option) Settings {
	s := Settings{
		ClientID: strings.TrimSpace(clientID),
		APIKey:   strings.TrimSpace(apiKey),
		Timeout:  DefaultTimeout,
		BaseURL:  DefaultBaseURL,
	}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

func (s Settings) HasCredentials() bool {
	return s.ClientID != "" && s.APIKey != ""
}

// FromEnv builds settings from DB_CLIENT_ID, DB_API_KEY and the optional DB_API_TIMEOUT (a Go duration).
func FromEnv() Settings {
	var opts []Option

	if raw := strings.TrimSpace(os.Getenv(TimeoutEnv)); raw != "" {
		if timeout, err := time.ParseDuration(raw); err == nil {
			opts = append(opts, WithTimeout(timeout))
		}
	}

	return New(os.Getenv(ClientIDEnv), os.Getenv(APIKeyEnv), opts...)
}

type fileSettings struct {
	ClientID string `toml:"client_id"`
	APIKey   string `toml:"api_key"`
	Timeout  int    `toml:"timeout"`
	BaseURL  string `toml:"base_url"`
}

// LoadFile reads settings from a TOML file. Credentials missing from the file
// are taken from the environment.
func LoadFile(path string) (Settings, error) {
	var fs fileSettings
	if _, err := toml.DecodeFile(path, &fs); err != nil {
		return Settings{}, fmt.Errorf("toml.DecodeFile: %w", err)
	}

	if fs.Timeout < 0 {
		return Settings{}, fmt.Errorf("timeout must not be negative, got %d", fs.Timeout)
	}

	env := FromEnv()

	clientID, apiKey := fs.ClientID, fs.APIKey
	if clientID == "" {
		clientID = env.ClientID
	}
	if apiKey == "" {
		apiKey = env.APIKey
	}

	return New(clientID, apiKey,
		WithTimeout(env.Timeout),
		WithTimeout(time.Duration(fs.Timeout)*time.Second),
		WithBaseURL(fs.BaseURL),
	), nil
}

var active atomic.Pointer[Settings]

// Configure installs the process-wide settings returned by Active.
func Configure(clientID, apiKey string, opts ...Option) Settings {
	s := New(clientID, apiKey, opts...)
	active.Store(&s)
	return s
}

// Use installs already built settings, e.g. the result of LoadFile.
func Use(s Settings) {
	active.Store(&s)
}

// Active returns a copy of the configured settings, falling back to the environment.
func Active() Settings {
	if s := active.Load(); s != nil {
		return *s
	}
	return FromEnv()
}

func Reset() {
	active.Store(nil)
}

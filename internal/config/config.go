package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "STAYBOOK"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultDatabasePath   = "staybook.db"
	defaultLogLevel       = "info"
	defaultIssuer         = "staybook-auth"
	defaultAudience       = "staybook-api"
	defaultTokenTTL       = 7 * 24 * 60
	defaultRemoteBaseURL  = "http://127.0.0.1:8080"
	defaultRemoteTimeoutS = 10
)

// AppConfig captures runtime configuration for both the document store server and the client commands.
type AppConfig struct {
	HTTPAddress   string
	DatabasePath  string
	LogLevel      string
	SigningSecret string
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	RemoteBaseURL string
	RemoteToken   string
	RemoteTimeout time.Duration
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetConfigName("staybook")
	configViper.AddConfigPath(".")

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.issuer", defaultIssuer)
	configViper.SetDefault("auth.audience", defaultAudience)
	configViper.SetDefault("token.ttl_minutes", defaultTokenTTL)
	configViper.SetDefault("remote.base_url", defaultRemoteBaseURL)
	configViper.SetDefault("remote.timeout_seconds", defaultRemoteTimeoutS)
}

// Load parses runtime configuration from viper. Role-specific checks live in ValidateServer and ValidateClient.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:   strings.TrimSpace(configViper.GetString("http.address")),
		DatabasePath:  strings.TrimSpace(configViper.GetString("database.path")),
		LogLevel:      configViper.GetString("log.level"),
		SigningSecret: configViper.GetString("auth.signing_secret"),
		Issuer:        strings.TrimSpace(configViper.GetString("auth.issuer")),
		Audience:      strings.TrimSpace(configViper.GetString("auth.audience")),
		TokenTTL:      time.Duration(configViper.GetInt("token.ttl_minutes")) * time.Minute,
		RemoteBaseURL: strings.TrimSpace(configViper.GetString("remote.base_url")),
		RemoteToken:   strings.TrimSpace(configViper.GetString("remote.token")),
		RemoteTimeout: time.Duration(configViper.GetInt("remote.timeout_seconds")) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("token.ttl_minutes must be positive")
	}
	if c.RemoteTimeout <= 0 {
		return fmt.Errorf("remote.timeout_seconds must be positive")
	}
	return nil
}

// ValidateServer checks the keys required to run the document store and mint tokens.
func (c AppConfig) ValidateServer() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if c.Issuer == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if c.Audience == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	return nil
}

// ValidateClient checks the keys required to talk to a remote document store.
func (c AppConfig) ValidateClient() error {
	if c.RemoteBaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	parsed, err := url.Parse(c.RemoteBaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("remote.base_url must be an absolute http(s) url")
	}
	if c.RemoteToken == "" {
		return fmt.Errorf("remote.token is required")
	}
	return nil
}

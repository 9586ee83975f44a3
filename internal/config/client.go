// AngelaMos | 2026
// client.go

package config

import (
	"fmt"
	"net/url"
	"time"
)

// ClientConfig configures forumctl and the in-process access control core.
type ClientConfig struct {
	API        APIConfig        `koanf:"api"`
	Auth       ClientAuthConfig `koanf:"auth"`
	Moderation ModerationConfig `koanf:"moderation"`
	Quota      QuotaConfig      `koanf:"quota"`
	Roles      RolesConfig      `koanf:"roles"`
	Log        LogConfig        `koanf:"log"`
}

type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type ClientAuthConfig struct {
	Email         string        `koanf:"email"`
	Password      string        `koanf:"password"`
	RefreshSkew   time.Duration `koanf:"refresh_skew"`
	SignInPath    string        `koanf:"sign_in_path"`
	HomePath      string        `koanf:"home_path"`
	RevokeTimeout time.Duration `koanf:"revoke_timeout"`
}

type ModerationConfig struct {
	AllowReReportAfterDismissal bool `koanf:"allow_rereport_after_dismissal"`
}

type QuotaConfig struct {
	PostLimit int `koanf:"post_limit"`
}

type RolesConfig struct {
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

func clientDefaults() map[string]any {
	return map[string]any{
		"api.base_url": "http://localhost:8080/v1",
		"api.timeout":  "15s",

		"auth.refresh_skew":   "30s",
		"auth.sign_in_path":   "/login",
		"auth.home_path":      "/",
		"auth.revoke_timeout": "5s",

		"moderation.allow_rereport_after_dismissal": true,

		"quota.post_limit": 5,

		"roles.cache_size": 256,
		"roles.cache_ttl":  "1h",

		"log.level":  "warn",
		"log.format": "text",
	}
}

var clientEnvKeyMap = map[string]string{
	"FORUM_API_URL":        "api.base_url",
	"FORUM_API_TIMEOUT":    "api.timeout",
	"FORUM_EMAIL":          "auth.email",
	"FORUM_PASSWORD":       "auth.password",
	"FORUM_ALLOW_REREPORT": "moderation.allow_rereport_after_dismissal",
	"FORUM_POST_LIMIT":     "quota.post_limit",
	"FORUM_ROLE_CACHE_TTL": "roles.cache_ttl",
	"LOG_LEVEL":            "log.level",
	"LOG_FORMAT":           "log.format",
}

// LoadClient is not memoized; each forumctl invocation loads it once.
func LoadClient(configPath string) (*ClientConfig, error) {
	c := &ClientConfig{}
	if err := clientLayers.load(configPath, c); err != nil {
		return nil, err
	}
	if err := validateClient(c); err != nil {
		return nil, fmt.Errorf("validate client config: %w", err)
	}
	return c, nil
}

var clientLayers = layers{defaults: clientDefaults(), envKeys: clientEnvKeyMap}

func validateClient(c *ClientConfig) error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL")
	}

	if c.Quota.PostLimit < 1 {
		return fmt.Errorf("quota.post_limit must be at least 1")
	}

	if c.Roles.CacheSize < 1 {
		return fmt.Errorf("roles.cache_size must be at least 1")
	}

	if c.Roles.CacheTTL <= 0 {
		return fmt.Errorf("roles.cache_ttl must be positive")
	}

	return nil
}

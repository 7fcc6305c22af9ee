package telegram

import (
	"fmt"
	"net/url"
	"regexp"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config holds the Telegram transport configuration.
type Config struct {
	Token          string   `yaml:"token"`
	Mode           string   `yaml:"mode"`
	PollingTimeout int      `yaml:"polling_timeout"`
	WebhookURL     string   `yaml:"webhook_url"`
	WebhookSecret  string   `yaml:"webhook_secret"`
	AllowedUpdates []string `yaml:"allowed_updates"`
	Administrators []int64  `yaml:"administrators"`
	APIURL         string   `yaml:"api_url"`
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.Mode == "" {
		c.Mode = "polling"
	}
	if c.PollingTimeout == 0 {
		c.PollingTimeout = 30
	}
	if c.AllowedUpdates == nil {
		c.AllowedUpdates = []string{"chat_member", "my_chat_member", "callback_query"}
	}
	if c.APIURL == "" {
		c.APIURL = "https://api.telegram.org"
	}
}

// Validate checks configuration field constraints after defaults have
// been applied.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("telegram: token is required")
	}
	if !tokenPattern.MatchString(c.Token) {
		return fmt.Errorf("telegram: token format invalid (expected <bot_id>:<hash>)")
	}

	switch c.Mode {
	case "polling":
	case "webhook":
		if c.WebhookURL == "" {
			return fmt.Errorf("telegram: webhook_url is required in webhook mode")
		}
		u, err := url.Parse(c.WebhookURL)
		if err != nil || u.Scheme != "https" {
			return fmt.Errorf("telegram: webhook_url must be a valid https URL, got %q", c.WebhookURL)
		}
	default:
		return fmt.Errorf("telegram: mode must be polling or webhook, got %q", c.Mode)
	}

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL)
		}
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout)
	}

	return nil
}

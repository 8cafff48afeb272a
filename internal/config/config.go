// Package config loads the process-wide configuration. Every setting
// is read once at startup into an immutable Config that is injected
// into the components that need it; there are no module-level host
// constants and nothing re-reads the environment after boot.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// IMAPConfig holds the upstream IMAP endpoint settings.
type IMAPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// ConnectTimeoutSec bounds dial, TLS handshake and greeting.
	ConnectTimeoutSec int `mapstructure:"connect_timeout_sec" yaml:"connect_timeout_sec"`
}

// SMTPConfig holds the submission endpoint settings for the SMTP
// delivery transport.
type SMTPConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	// ImplicitTLS selects implicit TLS instead of STARTTLS.
	ImplicitTLS bool `mapstructure:"implicit_tls" yaml:"implicit_tls"`
}

// MailgunConfig holds the HTTP delivery provider settings. Presence of
// both APIKey and Domain selects the Mailgun transport at startup.
type MailgunConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	Domain  string `mapstructure:"domain" yaml:"domain"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// From is the from-identity fallback when a request supplies
	// neither a from address nor credentials.
	From string `mapstructure:"from" yaml:"from"`
}

// JournalConfig holds the optional delivery journal settings. An empty
// path disables the journal entirely.
type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Pretty switches from JSON to human-readable console output.
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`
}

// Config is the top-level process configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	IMAP    IMAPConfig    `mapstructure:"imap" yaml:"imap"`
	SMTP    SMTPConfig    `mapstructure:"smtp" yaml:"smtp"`
	Mailgun MailgunConfig `mapstructure:"mailgun" yaml:"mailgun"`
	Journal JournalConfig `mapstructure:"journal" yaml:"journal"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// envPrefix namespaces environment overrides, e.g.
// EMAIL_BRIDGE_MAILGUN_API_KEY.
const envPrefix = "EMAIL_BRIDGE"

// defaultConfig targets iCloud Mail, the account family this bridge
// was built for. Every value can be overridden by file or environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3000"},
		IMAP: IMAPConfig{
			Host:              "imap.mail.me.com",
			Port:              993,
			ConnectTimeoutSec: 30,
		},
		SMTP: SMTPConfig{
			Host: "smtp.mail.me.com",
			Port: 587,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from the YAML file at path (if it exists)
// and the environment. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("imap.host", "imap.mail.me.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.connect_timeout_sec", 30)
	v.SetDefault("smtp.host", "smtp.mail.me.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.implicit_tls", false)
	v.SetDefault("mailgun.api_key", "")
	v.SetDefault("mailgun.domain", "")
	v.SetDefault("mailgun.base_url", "")
	v.SetDefault("mailgun.from", "")
	v.SetDefault("journal.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// MailgunEnabled reports whether the HTTP delivery transport is
// configured.
func (c *Config) MailgunEnabled() bool {
	return c.Mailgun.APIKey != "" && c.Mailgun.Domain != ""
}

package main

import (
	"dsatter-client/infrastructure/discovery"
	"dsatter-client/internal"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel         string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
	DiscoveryURL     string        `env:"DISCOVERY_URL" validate:"omitempty,url"`
	ServerURL        string        `env:"SERVER_URL"`
	ChatID           int64         `env:"CHAT_ID,default=11" validate:"gte=0"`
	PollInterval     time.Duration `env:"POLL_INTERVAL,default=500ms" validate:"gt=0"`
	HandshakeTimeout time.Duration `env:"HANDSHAKE_TIMEOUT,default=5s" validate:"gt=0"`
	DiscoveryTimeout time.Duration `env:"DISCOVERY_TIMEOUT,default=5s" validate:"gt=0"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	SettingsFile     string        `env:"SETTINGS_FILE,default=config.toml" validate:"required"`
	HistoryPath      string        `env:"HISTORY_PATH"`
}

// applySettings fills what the environment left empty with the saved settings.
func (c *Config) applySettings(settings internal.Settings) {
	if c.DiscoveryURL == "" {
		c.DiscoveryURL = settings.DiscoveryURL
	}
	if c.DiscoveryURL == "" {
		c.DiscoveryURL = discovery.DefaultURL
	}
}

// parseFlags lets the command line override the environment.
func (c *Config) parseFlags(args []string, output io.Writer) error {
	flags := flag.NewFlagSet("dsatter-client", flag.ContinueOnError)
	flags.SetOutput(output)

	var verbose bool
	discoveryURL, serverURL := c.DiscoveryURL, c.ServerURL
	for _, name := range []string{"v", "lv", "log-verbose"} {
		flags.BoolVar(&verbose, name, false, "Enable verbose (debug) logging")
	}
	for _, name := range []string{"d", "discovery"} {
		flags.StringVar(&discoveryURL, name, c.DiscoveryURL, "Url with port to a running node-discovery server to use")
	}
	for _, name := range []string{"s", "server"} {
		flags.StringVar(&serverURL, name, c.ServerURL,
			"Url with a port in case you want to connect to a specific node-server. "+
				"By default queries the discovery service for active node-servers.")
	}
	if err := flags.Parse(args); err != nil {
		return err
	}

	if verbose {
		c.LogLevel = "DEBUG"
	}
	c.DiscoveryURL = discoveryURL
	c.ServerURL = serverURL
	return nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const configKey = "scoreboard.config"

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("scoreboard failed")
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "scoreboard",
		Usage: "real-time tournament scoreboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "scoreboard.yaml", Usage: "path to the YAML config file", EnvVars: []string{"SCOREBOARD_CONFIG"}},
			&cli.StringFlag{Name: "store", Usage: "store backend: memory, nats or postgres"},
			&cli.StringFlag{Name: "nats-url", Usage: "NATS server URL"},
			&cli.StringFlag{Name: "device-file", Usage: "path of this device's preference file"},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
		},
		Before: func(c *cli.Context) error {
			config, err := loadConfig(c.String("config"))
			if err != nil {
				return err
			}
			if v := c.String("store"); v != "" {
				config.Store.Backend = v
			}
			if v := c.String("nats-url"); v != "" {
				config.Store.NATSURL = v
			}
			if v := c.String("device-file"); v != "" {
				config.Device.Path = v
			}
			if v := c.String("log-level"); v != "" {
				config.Log.Level = v
			}
			if err := config.validate(); err != nil {
				return err
			}

			if err := setupLogging(config.Log.Level); err != nil {
				return err
			}
			c.App.Metadata = map[string]interface{}{configKey: config}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			scorerCommand(),
			contestantCommand(),
		},
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	return nil
}

func configFrom(c *cli.Context) *Config {
	if config, ok := c.App.Metadata[configKey].(*Config); ok {
		return config
	}
	return defaultConfig()
}

package main

import (
	"fmt"

	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:  "validate",
				Usage: "Validate a configuration file",
				Description: `Validates the config file for syntax errors and invalid values.

Examples:
  unused-cleaner config validate                      # Project directory lookup
  unused-cleaner -c .unusedrc.yaml config validate    # Specific file`,
				Flags:  []cli.Flag{pathFlag()},
				Action: runConfigValidate,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Flags: []cli.Flag{
					pathFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "toml",
						Usage:   "Output format: json, yaml, or toml",
					},
				},
				Action: runConfigShow,
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.LoadResult, error) {
	opts := []config.LoadOption{config.WithDir(c.String("path"))}
	if p := c.String("config"); p != "" {
		opts = append(opts, config.WithPath(p))
	}
	return config.LoadConfig(opts...)
}

func runConfigValidate(c *cli.Context) error {
	console := newConsole(c)

	result, err := loadConfig(c)
	if err != nil {
		console.Error("Configuration validation failed:")
		console.Println("  - %s", err)
		return err
	}
	for _, w := range result.Warnings {
		console.Warn("%s", w)
	}
	if len(result.Warnings) > 0 && result.Source == "" {
		return fmt.Errorf("no usable config file found")
	}

	if result.Source != "" {
		console.Success("Configuration valid: %s", result.Source)
	} else {
		console.Warn("No config file found. Default configuration is valid.")
	}
	return nil
}

func runConfigShow(c *cli.Context) error {
	result, err := loadConfig(c)
	if err != nil {
		return err
	}

	content, err := marshalConfig(result.Config, c.String("format"))
	if err != nil {
		return err
	}

	console := newConsole(c)
	if c.String("format") != "json" {
		if result.Source != "" {
			console.Println("# Configuration from: %s\n", result.Source)
		} else {
			console.Println("# Default configuration (no config file found)")
		}
	}
	_, err = c.App.Writer.Write(content)
	return err
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/panbanda/unused-cleaner/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a configuration file with the default settings",
		Description: `Writes .unusedrc.<format> into the project directory.

Examples:
  unused-cleaner init                   # Creates .unusedrc.json
  unused-cleaner init --format yaml     # Creates .unusedrc.yaml
  unused-cleaner init -p app --force    # Overwrites app/.unusedrc.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Value:   ".",
				Usage:   "Project directory",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "json",
				Usage:   "File format: json, yaml, or toml",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config file",
			},
		},
		Action: runInitCmd,
	}
}

func runInitCmd(c *cli.Context) error {
	format := c.String("format")
	content, err := marshalConfig(config.DefaultConfig(), format)
	if err != nil {
		return err
	}

	outputPath := filepath.Join(c.String("path"), ".unusedrc."+format)
	if _, err := os.Stat(outputPath); err == nil && !c.Bool("force") {
		return fmt.Errorf("config file %q already exists (use --force to overwrite)", outputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", filepath.Dir(outputPath), err)
	}
	if err := os.WriteFile(outputPath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	console := newConsole(c)
	console.Success("Created %s", outputPath)
	console.Println("Edit this file to customize analysis settings.")
	return nil
}

// marshalConfig serializes cfg in one of the supported config formats.
func marshalConfig(cfg *config.Config, format string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = json.MarshalIndent(cfg, "", "  ")
		data = append(data, '\n')
	case "yaml", "yml":
		data, err = yaml.Marshal(cfg)
	case "toml":
		data, err = toml.Marshal(cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q (use json, yaml, or toml)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to %s: %w", format, err)
	}
	return data, nil
}

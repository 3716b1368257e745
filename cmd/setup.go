package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mixtape/internal/matching"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
)

// Setup writes a config file from the template when none exists, initializes the database and runs migrations,
// then writes default matching settings if the settings file is missing.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("using existing config file", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		r.config = config
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	db, err := r.database()
	if err != nil {
		return err
	}
	schema, err := shared.CurrentSchema(db)
	if err != nil {
		return err
	}

	settings := r.settingsFile()
	if _, err := os.Stat(settings.Path()); errors.Is(err, fs.ErrNotExist) {
		if err := settings.Save(matching.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to write matching settings: %w", err)
		}
		r.logger.Info("wrote default matching settings", "path", settings.Path())
	}

	r.writePlain("%s\n", ui.Success("✓ Setup complete"))
	r.writePlain("Config:   %s\n", configPath)
	r.writePlain("Database: %s (schema %04d_%s)\n", r.config.Database.Path, schema.Version, schema.Name)
	r.writePlain("Settings: %s\n", settings.Path())
	r.writePlainln("Next steps:")
	r.writePlain("1. Set plex.server_url, plex.token and plex.section_id in %s\n", configPath)
	r.writePlain("2. Run 'mixtape match run spotify:<playlist-id>' or 'mixtape mix all'\n")
	return nil
}
